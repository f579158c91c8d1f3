// microclid is the microcli daemon: a line-oriented command interpreter
// served over TCP, an optional local serial port, and an HTTP admin API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/psaab/microcli/pkg/config"
	"github.com/psaab/microcli/pkg/daemon"
)

func main() {
	configFile := flag.String("config", "",
		"configuration file path (default: "+config.DefaultPath+" if present)")
	logLevel := flag.String("log-level", "info", "log level (debug|info|warn|error)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "microclid: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	d := daemon.New(daemon.Options{ConfigFile: *configFile})
	if err := d.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "microclid: %v\n", err)
		os.Exit(1)
	}
}
