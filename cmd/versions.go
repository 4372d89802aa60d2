package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tidbyt.dev/gtfsmeta/model"
	"tidbyt.dev/gtfsmeta/storage"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Lists cataloged dataset versions",
	Args:  cobra.NoArgs,
	RunE:  versions,
}

var versionsDeleteCmd = &cobra.Command{
	Use:   "delete <source id> <hash>",
	Short: "Removes a dataset version from the catalog",
	Long: "Removes a dataset version from the catalog. The version is " +
		"treated as new, and cataloged again, the next time it is harvested.",
	Args: cobra.ExactArgs(2),
	RunE: deleteVersion,
}

var (
	versionsSource string
	versionsJSON   bool
)

func init() {
	versionsCmd.Flags().StringVarP(&versionsSource, "source", "s", "", "Only list versions of this source")
	versionsCmd.Flags().BoolVarP(&versionsJSON, "json", "", false, "Output full metadata as JSON")
	versionsCmd.AddCommand(versionsDeleteCmd)
	rootCmd.AddCommand(versionsCmd)
}

func deleteVersion(cmd *cobra.Command, args []string) error {
	s, err := cfg.OpenStorage()
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer s.Close()

	sourceID, hash := args[0], args[1]
	if err := s.DeleteFeedMetadata(sourceID, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no version %s of source %s", hash, sourceID)
		}
		return err
	}

	slog.Info("version deleted", "source_id", sourceID, "hash", hash)
	return nil
}

func versions(cmd *cobra.Command, args []string) error {
	s, err := cfg.OpenStorage()
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer s.Close()

	metadata, err := s.ListVersions(storage.ListVersionsFilter{SourceID: versionsSource})
	if err != nil {
		return err
	}

	if versionsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(metadata)
	}

	for _, m := range metadata {
		fmt.Printf(
			"%-40s %s  %s..%s  %s\n",
			m.VersionName,
			m.RetrievedAt.Format("2006-01-02 15:04"),
			orDash(m.StartServiceDate),
			orDash(m.EndServiceDate),
			strings.Join(m.CountryCodes, ","),
		)
		for _, c := range m.BoundingBox {
			lat, lon := c.DMS()
			fmt.Printf("    %-11s %s %s\n", c.Label, lat, lon)
		}
	}

	return nil
}

func orDash(s *string) string {
	if v := model.Str(s); v != "" {
		return v
	}
	return "-"
}
