// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kb-ingest/internal/graph"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored episodes to YAML or JSON",
	Long: `Export writes all stored episodes (or a filtered subset) to
<graph-dir>/index/export.yaml or export.json. Supports the same filter
flags as query for partial exports.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg := graphConfig(cmd)
	store, err := graph.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := searchOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/index/export.yaml\n", cfg.Dir)
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/index/export.json\n", cfg.Dir)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

func init() {
	exportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	exportCmd.Flags().String("query", "", "full-text search filter for partial export")
	exportCmd.Flags().String("source", "", "filter by source description for partial export")
	exportCmd.Flags().Int("limit", 0, "maximum episodes to export (0 = all)")
	addGraphFlags(exportCmd)

	rootCmd.AddCommand(exportCmd)
}
