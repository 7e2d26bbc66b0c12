package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/JamisonProctor/planz/app_setting"
	"github.com/JamisonProctor/planz/collector"
	"github.com/JamisonProctor/planz/discovery"
	"github.com/JamisonProctor/planz/utils/dotenv"
	. "github.com/JamisonProctor/planz/utils/flag"
	. "github.com/JamisonProctor/planz/utils/log"
)

// Prints what the verification gate and the listing paginator make of a url,
// without touching the database.
//
//	go run ./scripts/diagnose_source_url -url https://www.muenchen.de/veranstaltungen
var (
	targetUrl = flag.String("url", "", "url to diagnose")
	render    = flag.Bool("render", false, "also fetch through headless chrome")
)

func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.Fatal("fail to load env : ", err)
	}
	SetServiceName(Script)
	if *targetUrl == "" {
		fmt.Fprintln(os.Stderr, "usage: diagnose_source_url -url <url>")
		os.Exit(2)
	}

	setting, err := app_setting.ParsePlanzAppSetting(*ConfigPath)
	if err != nil {
		Log.Fatal("fail to parse setting : ", err)
	}
	ctx := context.Background()
	now := time.Now()
	fetcher := collector.NewCollyFetcher()

	res, err := fetcher.Fetch(ctx, *targetUrl, setting.FetchTimeout())
	if err != nil {
		fmt.Printf("fetch: error %v\n", err)
	} else {
		s := discovery.DetectSignals(res.Text, now)
		fmt.Printf("fetch: status=%d final_url=%s\n", res.StatusCode, res.Url)
		fmt.Printf("signals: %+v\n", s)
	}

	var renderer collector.Fetcher
	if *render {
		setting.EnableRendering = true
		r := collector.NewRodRenderer(os.Getenv("CHROME_URL"))
		defer r.Close()
		renderer = r
	}
	v := discovery.NewVerificationGate(setting, fetcher, renderer, now).Verify(ctx, *targetUrl)
	fmt.Printf("verdict: accepted=%t reason=%q soft_signals=%v rendered=%t issue=%q\n",
		v.Accepted, v.Reason, v.SoftSignals, v.Rendered, v.IssueReason())

	start := v.CanonicalUrl
	if start == "" {
		start = *targetUrl
	}
	it := collector.EnumerateListingPages(ctx, start, fetcher, collector.ListingOptions{
		MaxPages:   setting.MaxListingPages,
		Timeout:    setting.FetchTimeout(),
		SameDomain: true,
	})
	for i := 1; it.Next(); i++ {
		fmt.Printf("listing page %d: %s\n", i, it.Url())
	}
	fmt.Printf("pagination stopped: %s\n", it.StopReason())
}
