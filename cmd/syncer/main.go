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
	SetServiceName(Syncer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := pipeline.OpenServices(ctx, *ConfigPath, true)
	if err != nil {
		Log.Fatal("fail to initialize syncer : ", err)
	}
	defer services.Close()

	stats, err := services.NewSyncer().Run(ctx, time.Now())
	if err != nil {
		Log.Fatal("calendar sync failed : ", err)
	}
	Log.Infof("calendar sync finished: %+v", stats)
}
