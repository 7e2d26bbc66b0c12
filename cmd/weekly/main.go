package main

import (
	"context"
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

var seed = flag.Bool("seed", false, "run discovery before fetching")

func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.Fatal("fail to load env : ", err)
	}
	SetServiceName(Weekly)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := pipeline.OpenServices(ctx, *ConfigPath, true)
	if err != nil {
		Log.Fatal("fail to initialize weekly pipeline : ", err)
	}
	defer services.Close()

	if _, err := services.NewWeeklyPipeline(*seed).RunWeeklyPipeline(ctx, time.Now()); err != nil {
		Log.Fatal("weekly run failed : ", err)
	}
}
