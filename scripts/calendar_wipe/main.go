package main

import (
	"context"
	"flag"
	"time"

	"github.com/JamisonProctor/planz/app_setting"
	"github.com/JamisonProctor/planz/calendar"
	"github.com/JamisonProctor/planz/utils/dotenv"
	. "github.com/JamisonProctor/planz/utils/flag"
	. "github.com/JamisonProctor/planz/utils/log"
)

// Deletes planz entries from the calendar, e.g. before re-syncing from a fresh
// database.
//
//	go run ./scripts/calendar_wipe -days 60 -dry-run=false
var (
	days        = flag.Int("days", 90, "wipe entries starting within this many days before and after now")
	dryRun      = flag.Bool("dry-run", true, "only log the entries that would be deleted")
	forceLegacy = flag.Bool("force-legacy", false, "also delete entries carrying only the legacy title prefix")
)

func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.Fatal("fail to load env : ", err)
	}
	SetServiceName(Script)

	setting, err := app_setting.ParsePlanzAppSetting(*ConfigPath)
	if err != nil {
		Log.Fatal("fail to parse setting : ", err)
	}

	ctx := context.Background()
	client, err := calendar.NewGoogleCalendarClient(ctx, setting.GoogleCredentialsPath, setting.GoogleTokenPath, setting.CalendarId, setting.Timezone)
	if err != nil {
		Log.Fatal("fail to build calendar client : ", err)
	}

	stats, err := calendar.WipeMarkedEvents(ctx, client, time.Now(), *days, *dryRun, *forceLegacy)
	if err != nil {
		Log.Fatal("wipe failed : ", err)
	}
	Log.Infof("wipe finished (dry run %t): %+v", *dryRun, stats)
}
