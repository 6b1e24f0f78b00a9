// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/recog-engine/internal/normalize"
)

// LoadCatalog reads a module catalog: a JSON (.json) or YAML list of
// {id, content, metadata} entries, the shape a Chroma collection export
// produces. Entries without an id get a random UUID. Entries without
// content get one assembled from their title and description metadata.
func LoadCatalog(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	var entries []Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &entries)
	default:
		err = yaml.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}

	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Metadata == nil {
			e.Metadata = map[string]any{}
		}
		if strings.TrimSpace(e.Content) == "" {
			e.Content = contentFromMetadata(e.Metadata)
		}
	}
	return entries, nil
}

func contentFromMetadata(md map[string]any) string {
	var lines []string
	if title := normalize.String(md, "title", "name"); title != "" {
		lines = append(lines, title)
	}
	if desc := normalize.String(md, "description", "learning_outcomes"); desc != "" {
		lines = append(lines, desc)
	}
	return strings.Join(lines, "\n")
}

// WriteCatalog writes entries in the format LoadCatalog reads: "json" or
// "yaml".
func WriteCatalog(w io.Writer, entries []Entry, format string) error {
	if entries == nil {
		entries = []Entry{}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown catalog format %q", format)
	}
}

// ImportSummary holds counts from a catalog import run.
type ImportSummary struct {
	Indexed int
	Skipped int
	Failed  int
}

// Total returns the number of entries processed.
func (s ImportSummary) Total() int {
	return s.Indexed + s.Skipped + s.Failed
}

const defaultBatchSize = 64

// Import upserts entries into store in batches, writing one progress line
// per batch to w. Entries with empty content are skipped. A failed batch
// is counted and the import continues; only context cancellation aborts.
func Import(ctx context.Context, store Store, entries []Entry, batchSize int, w io.Writer) (ImportSummary, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var summary ImportSummary
	batch := make([]Entry, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := store.Upsert(ctx, batch); err != nil {
			fmt.Fprintf(w, "failed  %d entries (%s..): %v\n", len(batch), batch[0].ID, err)
			summary.Failed += len(batch)
		} else {
			fmt.Fprintf(w, "indexed %d entries (%s..)\n", len(batch), batch[0].ID)
			summary.Indexed += len(batch)
		}
		batch = make([]Entry, 0, batchSize)
	}

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if strings.TrimSpace(e.Content) == "" {
			fmt.Fprintf(w, "skipped %s: no content\n", e.ID)
			summary.Skipped++
			continue
		}
		batch = append(batch, e)
		if len(batch) == batchSize {
			flush()
		}
	}
	flush()

	fmt.Fprintf(w, "\nindexed: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Skipped, summary.Failed)
	return summary, nil
}
