package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   local database path
//	-r string   document store DSN
//	-b string   local blob store directory
//	-l string   log level
//	-i int      document store poll interval in seconds
//	-z string   timezone
//
// os.Args is filtered with flagx.FilterArgs first, so flags owned by other
// components do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-b", "-l", "-i", "-z"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local database path")
	fs.StringVar(&cfg.DocStoreDSN, "r", cfg.DocStoreDSN, "document store DSN")
	fs.StringVar(&cfg.BlobDir, "b", cfg.BlobDir, "local blob store directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	watchInterval := fs.Int("i", int(cfg.WatchInterval.Seconds()), "document store poll interval (in seconds)")
	fs.StringVar(&cfg.Timezone, "z", cfg.Timezone, "timezone diaries are grouped by")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// sub-second intervals from earlier sources survive unless -i is given
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.WatchInterval = time.Duration(*watchInterval) * time.Second
		}
	})
}
