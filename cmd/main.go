package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	// Feeds name their timezones; don't depend on the host having
	// a zoneinfo database.
	_ "time/tzdata"

	"tidbyt.dev/gtfsmeta/config"
	"tidbyt.dev/gtfsmeta/process"
)

var rootCmd = &cobra.Command{
	Use:               "gtfsmeta",
	Short:             "GTFS metadata harvester",
	Long:              "Downloads static GTFS feeds and catalogs metadata for each new version",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	configPath string
	logLevel   string
	logFormat  string
	noCountry  bool

	cfg *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&logFormat, "log-format", "", "", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&noCountry, "no-countries", "", false, "Skip reverse geocoding of stops")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// Loads config and sets up the default logger. Flags take precedence
// over the config file.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath == "" {
		cfg, err = config.Parse([]byte("{}"))
	} else {
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	return nil
}

func newLogger(lc config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch lc.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format '%s'", lc.Format)
}

func buildProcessors() ([]process.Processor, error) {
	pc := process.Config{
		RouteTypeKeys: cfg.RouteTypes(),
		Clock:         cfg.Clock(),
		Now:           time.Now,
	}

	if !noCountry {
		start := time.Now()
		resolver, err := process.NewRGeoResolver()
		if err != nil {
			return nil, err
		}
		slog.Debug("loaded country polygons", "elapsed", time.Since(start))
		pc.Countries = resolver
	}

	return process.Processors(pc), nil
}

func parseHeaders(headers []string) (map[string]string, error) {
	parsed := map[string]string{}
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("'%s' is not on form <key>:<value>", header)
		}
		parsed[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return parsed, nil
}
