/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic
	For service dependent flags please define in their respective package.
	Every main function must call flag.Parse() before reading them; parsing in
	init breaks "go test" flag handling.
*/

package flag

import (
	"flag"
)

const (
	Seeder    = "seeder"
	Fetcher   = "fetcher"
	Extractor = "extractor"
	Syncer    = "syncer"
	Weekly    = "weekly"
	APIServer = "api_server"
	Script    = "script"
)

var (
	IsDevelopment = flag.Bool("dev", true, "set to true if the current run is for development. default value is true")
	ServiceName   = flag.String("service", Weekly, "one of 'seeder', 'fetcher', 'extractor', 'syncer', 'weekly', 'api_server'")
	ConfigPath    = flag.String("config", "", "path to the planz yaml setting file, defaults are used when empty")
)
