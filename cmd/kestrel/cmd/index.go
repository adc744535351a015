package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrel-search/kestrel/internal/store"
)

// ingestBatchSize bounds memory while streaming large JSONL files.
const ingestBatchSize = 256

// indexOptions holds CLI flags for index.
type indexOptions struct {
	tenant string
}

// documentLine is one JSONL record in an ingestion file.
type documentLine struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Source    string   `json:"source"`
	Content   string   `json:"content"`
	DocType   string   `json:"doc_type"`
	Tags      []string `json:"tags"`
	Timestamp string   `json:"timestamp"` // RFC3339, optional
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index <file.jsonl>",
		Short: "Ingest documents for a tenant",
		Long: `Ingest documents from a JSONL file into a tenant's indices.

Each line is one document:
  {"id":"doc-1","title":"Runbook","content":"...","doc_type":"runbook","tags":["ops"]}

Use "-" to read from stdin. Existing document IDs are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.tenant, "tenant", "t", "", "Tenant ID (required)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runIndex(ctx context.Context, path string, opts indexOptions) error {
	a, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	var reader io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input file: %w", err)
		}
		defer file.Close()
		reader = file
	}

	start := time.Now()
	total, err := ingestStream(ctx, a, opts.tenant, reader)
	if err != nil {
		return err
	}

	if err := a.registry.Save(); err != nil {
		return fmt.Errorf("persist indices: %w", err)
	}

	fmt.Printf("Indexed %d document(s) for tenant %q in %s\n",
		total, opts.tenant, formatDuration(time.Since(start)))
	return nil
}

func ingestStream(ctx context.Context, a *app, tenantID string, reader io.Reader) (int, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	batch := make([]*store.Document, 0, ingestBatchSize)
	total := 0
	lineNo := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := a.ingestor.Ingest(ctx, tenantID, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var dl documentLine
		if err := json.Unmarshal(line, &dl); err != nil {
			return total, fmt.Errorf("line %d: invalid JSON: %w", lineNo, err)
		}
		doc, err := dl.toDocument()
		if err != nil {
			return total, fmt.Errorf("line %d: %w", lineNo, err)
		}

		batch = append(batch, doc)
		if len(batch) == ingestBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("read input: %w", err)
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func (dl *documentLine) toDocument() (*store.Document, error) {
	if dl.ID == "" {
		return nil, fmt.Errorf("document is missing an id")
	}
	if dl.Content == "" {
		return nil, fmt.Errorf("document %q has no content", dl.ID)
	}

	doc := &store.Document{
		ID:      dl.ID,
		Title:   dl.Title,
		Source:  dl.Source,
		Content: dl.Content,
		DocType: dl.DocType,
		Tags:    dl.Tags,
	}
	if dl.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, dl.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("document %q has an invalid timestamp: %w", dl.ID, err)
		}
		doc.Timestamp = ts
	}
	return doc, nil
}
