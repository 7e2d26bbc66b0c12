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
	SetServiceName(Seeder)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := pipeline.OpenServices(ctx, *ConfigPath, false)
	if err != nil {
		Log.Fatal("fail to initialize seeder : ", err)
	}
	defer services.Close()

	seeder := services.NewSeeder()
	if seeder == nil {
		Log.Fatal("OPENAI_API_KEY missing: cannot run discovery")
	}

	stats, err := seeder.Run(ctx, time.Now())
	if err != nil {
		Log.Fatal("seeding run failed : ", err)
	}
	summary, _ := json.Marshal(stats)
	Log.Infof("seeding run finished: %s", summary)
}
