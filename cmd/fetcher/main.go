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

func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.Fatal("fail to load env : ", err)
	}
	SetServiceName(Fetcher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := pipeline.OpenServices(ctx, *ConfigPath, false)
	if err != nil {
		Log.Fatal("fail to initialize fetcher : ", err)
	}
	defer services.Close()

	stats, err := services.NewFetchJob().Run(ctx, time.Now())
	if err != nil {
		Log.Fatal("fetch run failed : ", err)
	}
	Log.Infof("fetch run finished: %+v", stats)
}
