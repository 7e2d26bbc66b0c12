package log

import (
	"os"

	"github.com/JamisonProctor/planz/utils/dotenv"
	"github.com/JamisonProctor/planz/utils/flag"
	"github.com/sirupsen/logrus"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// This init function is only for testing cases, where the entry point is not
// main function. Unit test will fail with nil pointer dereference if we don't
// init here.
func init() {
	InitLogger()
}

func InitLogger() {
	logger = logrus.New()

	isProd := os.Getenv(dotenv.EnvVarName) == dotenv.ProdEnv
	if isProd {
		// JSON in production, readable text everywhere else.
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.SetOutput(os.Stderr)

	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	Log = logger.WithFields(
		logrus.Fields{"service": *flag.ServiceName, "is_development": !isProd},
	)
}

// SetServiceName re-creates the global entry after flags are parsed so that the
// "service" field reflects the running binary.
func SetServiceName(name string) {
	Log = logger.WithFields(logrus.Fields{
		"service":        name,
		"is_development": os.Getenv(dotenv.EnvVarName) != dotenv.ProdEnv,
	})
}

// IsDebugEnabled is true when the logger emits debug entries.
func IsDebugEnabled() bool {
	return logger.IsLevelEnabled(logrus.DebugLevel)
}
