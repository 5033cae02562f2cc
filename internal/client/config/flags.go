package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/foamyadmin/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the REST API
//	-s string   SQLite file for the session
//	-r int      product list revalidation interval (in seconds)
//	-l string   log level
//
// os.Args is filtered with flagx.FilterArgs first, so flags owned by other
// loaders (-c) do not fail the parse.
func parseFlags(cfg *Config) error {
	return parseFlagArgs(cfg, os.Args[1:])
}

func parseFlagArgs(cfg *Config, argv []string) error {
	args := flagx.FilterArgs(argv, []string{"-a", "-s", "-r", "-l"})

	fs := flag.NewFlagSet("foamyadmin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the REST API")
	fs.StringVar(&cfg.StorageDSN, "s", cfg.StorageDSN, "SQLite file for the session")
	revalidate := fs.Int("r", int(cfg.RevalidateInterval.Seconds()), "product list revalidation interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only an explicit -r replaces a sub-second value from JSON.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "r" {
			cfg.RevalidateInterval = time.Duration(*revalidate) * time.Second
		}
	})
	return nil
}
