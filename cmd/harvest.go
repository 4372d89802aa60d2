package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"tidbyt.dev/gtfsmeta"
	"tidbyt.dev/gtfsmeta/downloader"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Downloads configured sources and catalogs new versions",
	Args:  cobra.NoArgs,
	RunE:  harvest,
}

var force bool

func init() {
	harvestCmd.Flags().BoolVarP(&force, "force", "f", false, "Refresh sources regardless of when they last were")
	rootCmd.AddCommand(harvestCmd)
}

func harvest(cmd *cobra.Command, args []string) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("no sources configured")
	}

	s, err := cfg.OpenStorage()
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer s.Close()

	archives, err := downloader.NewFilesystem(cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("creating work dir: %w", err)
	}

	processors, err := buildProcessors()
	if err != nil {
		return err
	}

	pipeline := gtfsmeta.NewPipeline(processors, s)
	pipeline.Workers = cfg.Workers

	h := gtfsmeta.NewHarvester(s, archives, pipeline)
	h.RefreshInterval = cfg.RefreshInterval
	h.Timeout = cfg.Download.Timeout
	h.MaxSize = cfg.Download.MaxSize
	h.KeepArchives = cfg.KeepArchives
	h.CacheTTL = cfg.Download.EffectiveCacheTTL()
	if cfg.Download.Cache == "filesystem" {
		h.Downloader = archives
	}

	for _, src := range cfg.StorageSources() {
		if err := h.AddSource(src); err != nil {
			return err
		}
	}

	results, err := h.Refresh(cmd.Context(), force)

	counts := map[gtfsmeta.State]int{}
	failed := 0
	for _, res := range results {
		counts[res.State]++
		if res.Err != nil {
			failed++
		}
	}
	slog.Info(
		"harvest complete",
		"versions", len(results),
		"published", counts[gtfsmeta.StatePublished],
		"discarded", counts[gtfsmeta.StateDiscarded],
		"failed", failed,
	)

	return err
}
