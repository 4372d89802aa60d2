package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tidbyt.dev/gtfsmeta"
	"tidbyt.dev/gtfsmeta/downloader"
	"tidbyt.dev/gtfsmeta/model"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <path or url>",
	Short: "Computes metadata for a single GTFS archive without cataloging it",
	Args:  cobra.ExactArgs(1),
	RunE:  inspect,
}

var inspectHeaders []string

func init() {
	inspectCmd.Flags().StringSliceVarP(
		&inspectHeaders,
		"header",
		"",
		[]string{},
		"HTTP header on form <key>:<value>, when fetching a URL",
	)
	rootCmd.AddCommand(inspectCmd)
}

func inspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	now := time.Now().UTC()

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		headers, err := parseHeaders(inspectHeaders)
		if err != nil {
			return fmt.Errorf("invalid header: %w", err)
		}

		body, err := downloader.HTTPGet(cmd.Context(), path, headers, downloader.GetOptions{
			Timeout: cfg.Download.Timeout,
			MaxSize: cfg.Download.MaxSize,
		})
		if err != nil {
			return err
		}

		tmp, err := os.MkdirTemp("", "gtfsmeta")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)

		archives, err := downloader.NewFilesystem(tmp)
		if err != nil {
			return err
		}
		path, err = archives.Save("inspect.zip", body)
		if err != nil {
			return err
		}
	}

	processors, err := buildProcessors()
	if err != nil {
		return err
	}

	info := &model.DatasetVersionInfo{
		SourceID:     "cli",
		SourceName:   strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])),
		URL:          args[0],
		ArchivePath:  path,
		DownloadDate: now,
	}

	res := gtfsmeta.NewPipeline(processors, nil).Process(cmd.Context(), info)
	if res.Err != nil {
		return res.Err
	}
	for name, err := range res.FieldErrors {
		fmt.Fprintf(os.Stderr, "%s: %s\n", name, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Metadata)
}
