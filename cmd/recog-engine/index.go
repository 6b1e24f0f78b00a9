// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/recog-engine/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the module similarity index (import, search, export, count)",
	Long: `Index manages the catalog of internal modules the suggestions are drawn
from. The backend is a Chroma collection or a local SQLite database, selected
by index.backend in the config.`,
}

// --- import subcommand ---

var indexImportCmd = &cobra.Command{
	Use:   "import <catalog.yaml|catalog.json>",
	Short: "Embed and upsert a module catalog into the index",
	Long: `Import reads a list of {id, content, metadata} entries (the shape of a
Chroma collection export) and upserts them into the index in batches.
Entries without an id get a generated one; entries without content are
built from their title and description, or skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexImport,
}

func runIndexImport(cmd *cobra.Command, args []string) error {
	batchSize, _ := cmd.Flags().GetInt("batch-size")

	entries, err := index.LoadCatalog(args[0])
	if err != nil {
		return err
	}

	store, err := openStore(cmd.Context(), appConfig.Index, logger, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := index.Import(cmd.Context(), store, entries, batchSize, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d entries failed indexing", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var indexSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Query the index directly, without extraction",
	Long: `Search embeds the query text and lists the nearest catalog entries with
their distances, closest first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexSearch,
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	k, _ := cmd.Flags().GetInt("k")

	store, err := openStore(cmd.Context(), appConfig.Index, logger, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	hits, err := store.SimilaritySearchWithScore(cmd.Context(), strings.Join(args, " "), k)
	if err != nil {
		return err
	}
	return writeOutput(cmd, hits)
}

// --- export subcommand ---

// lister is implemented by backends that can enumerate their entries.
type lister interface {
	Entries(ctx context.Context) ([]index.Entry, error)
}

var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the local index as a catalog file",
	Long: `Export writes every entry of the SQLite index as a catalog that import
accepts. Chroma collections are exported with Chroma's own tooling.`,
	RunE: runIndexExport,
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("output")

	store, err := openStore(cmd.Context(), appConfig.Index, logger, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	l, ok := store.(lister)
	if !ok {
		return fmt.Errorf("index backend %q does not support export", appConfig.Index.Backend)
	}
	entries, err := l.Entries(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}
	if err := index.WriteCatalog(w, entries, format); err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d entries to %s\n", len(entries), out)
	}
	return nil
}

// --- count subcommand ---

var indexCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of indexed entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context(), appConfig.Index, logger, nil)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

func init() {
	indexImportCmd.Flags().Int("batch-size", 64, "entries embedded and upserted per request")

	indexSearchCmd.Flags().Int("k", 5, "number of neighbors")
	addFormatFlag(indexSearchCmd)

	indexExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	indexExportCmd.Flags().String("output", "", "write to this file instead of stdout")

	indexCmd.AddCommand(indexImportCmd)
	indexCmd.AddCommand(indexSearchCmd)
	indexCmd.AddCommand(indexExportCmd)
	indexCmd.AddCommand(indexCountCmd)

	rootCmd.AddCommand(indexCmd)
}
