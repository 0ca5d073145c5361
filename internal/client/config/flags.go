package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gofood/internal/flagx"
)

var (
	ValueFlags = []string{"-a", "-p", "-t", "-r", "-db", "-c", "-config"}
	BoolFlags  = []string{"-d"}
)

// parseFlags populates Config fields from the flags in args. Flags owned by
// other components are filtered out first with flagx.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgsWithBools(args, []string{"-a", "-p", "-t", "-r", "-db"}, BoolFlags)

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "base URL of the API")
	fs.StringVar(&cfg.Platform, "p", cfg.Platform, "platform (android-emulator rewrites localhost)")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.DurationVar(&cfg.RefreshTimeout, "r", cfg.RefreshTimeout, "token refresh timeout")
	fs.StringVar(&cfg.TokenDB, "db", cfg.TokenDB, "token database path")
	fs.BoolVar(&cfg.Debug, "d", cfg.Debug, "debug output")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config: flags: %w", err)
	}
	return nil
}
