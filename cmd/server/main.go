package main

import (
	"flag"
	"os"

	"github.com/JamisonProctor/planz/server"
	"github.com/JamisonProctor/planz/utils"
	"github.com/JamisonProctor/planz/utils/dotenv"
	. "github.com/JamisonProctor/planz/utils/flag"
	. "github.com/JamisonProctor/planz/utils/log"
)

func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.Fatal("fail to load env : ", err)
	}
	SetServiceName(APIServer)

	db, err := utils.GetDBConnection()
	if err != nil {
		Log.Fatal("fail to connect database : ", err)
	}
	if err := utils.DatabaseSetupAndMigration(db); err != nil {
		Log.Fatal("fail to migrate database : ", err)
	}

	addr := os.Getenv("PLANZ_ADMIN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	router := server.SetupRouter(db)
	Log.Info("api server starts up")
	if err := router.Run(addr); err != nil {
		Log.Fatal("api server stopped : ", err)
	}
}
