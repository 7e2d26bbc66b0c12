package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JamisonProctor/planz/pipeline"
	"github.com/JamisonProctor/planz/utils/dotenv"
	. "github.com/JamisonProctor/planz/utils/flag"
	. "github.com/JamisonProctor/planz/utils/log"
)

func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.Fatal("fail to load env : ", err)
	}
	SetServiceName(Extractor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := pipeline.OpenServices(ctx, *ConfigPath, false)
	if err != nil {
		Log.Fatal("fail to initialize extractor : ", err)
	}
	defer services.Close()

	stats, err := services.NewExtractionJob().ExtractAndStoreForSources(ctx, time.Now())
	if err != nil {
		Log.Fatal("extraction run failed : ", err)
	}
	summary, _ := json.Marshal(stats)
	Log.Infof("extraction run finished: %s", summary)
}
