package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kestrel-search/kestrel/internal/retrieval"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	tenant   string
	user     string
	limit    int
	docType  string
	tags     []string
	dateFrom string
	dateTo   string
	format   string // "auto", "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a tenant's documents",
		Long: `Search a tenant's documents with hybrid retrieval.

Vector and keyword searches run concurrently under a shared deadline;
results are fused with weighted scoring. The tier field reports which
backends contributed (both, vector_only, keyword_only, none).

Examples:
  kestrel search "payment gateway" --tenant acme
  kestrel search "quarterly report" --tenant acme --type report --limit 5
  kestrel search "deploy failure" --tenant acme --tag ops --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.tenant, "tenant", "t", "", "Tenant ID (required)")
	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "User ID for request attribution")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVar(&opts.docType, "type", "", "Filter by document type")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Filter by tag (repeatable, all must match)")
	cmd.Flags().StringVar(&opts.dateFrom, "from", "", "Filter by date lower bound (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.dateTo, "to", "", "Filter by date upper bound (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "auto", "Output format: auto, text, json")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runSearch(ctx context.Context, queryText string, opts searchOptions) error {
	a, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	filter, err := buildFilter(opts)
	if err != nil {
		return err
	}

	start := time.Now()
	results, tier, err := a.engine.Search(ctx, &retrieval.Query{
		TenantID: opts.tenant,
		UserID:   opts.user,
		Text:     queryText,
		Filter:   filter,
		K:        opts.limit,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if useJSON(opts.format) {
		return printJSON(results, tier, elapsed)
	}
	printText(results, tier, elapsed)
	return nil
}

func buildFilter(opts searchOptions) (*retrieval.Filter, error) {
	f := &retrieval.Filter{DocType: opts.docType, Tags: opts.tags}

	var err error
	if f.DateFrom, err = parseDate(opts.dateFrom); err != nil {
		return nil, fmt.Errorf("invalid --from: %w", err)
	}
	if f.DateTo, err = parseDate(opts.dateTo); err != nil {
		return nil, fmt.Errorf("invalid --to: %w", err)
	}

	if f.IsZero() {
		return nil, nil
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// useJSON picks the output format: explicit flag wins, otherwise pretty
// text on a terminal and JSON when piped.
func useJSON(format string) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	default:
		return !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
}

// searchOutput is the JSON response shape.
type searchOutput struct {
	Tier      string         `json:"tier"`
	Count     int            `json:"count"`
	LatencyMS int64          `json:"latency_ms"`
	Results   []resultOutput `json:"results"`
}

type resultOutput struct {
	DocID     string   `json:"doc_id"`
	Score     float64  `json:"score"`
	Rank      int      `json:"rank"`
	Backends  []string `json:"backends"`
	Title     string   `json:"title,omitempty"`
	Source    string   `json:"source,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}

func printJSON(results []*retrieval.FusedResult, tier retrieval.Tier, elapsed time.Duration) error {
	out := searchOutput{
		Tier:      string(tier),
		Count:     len(results),
		LatencyMS: elapsed.Milliseconds(),
		Results:   make([]resultOutput, 0, len(results)),
	}
	for _, r := range results {
		ro := resultOutput{
			DocID:    r.DocID,
			Score:    r.Score,
			Rank:     r.Rank,
			Backends: backendNames(r.Backends),
			Title:    r.Title,
			Source:   r.Source,
		}
		if !r.Timestamp.IsZero() {
			ro.Timestamp = r.Timestamp.Format(time.RFC3339)
		}
		out.Results = append(out.Results, ro)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printText(results []*retrieval.FusedResult, tier retrieval.Tier, elapsed time.Duration) {
	switch tier {
	case retrieval.TierNone:
		fmt.Println("No results available: both search backends failed.")
		return
	case retrieval.TierVectorOnly, retrieval.TierKeywordOnly:
		fmt.Printf("Degraded results (%s):\n\n", tier)
	}

	if len(results) == 0 {
		fmt.Println("No matching documents.")
		return
	}

	for _, r := range results {
		title := r.Title
		if title == "" {
			title = r.DocID
		}
		fmt.Printf("%2d. %s (score %.4f, via %s)\n", r.Rank+1, title, r.Score, strings.Join(backendNames(r.Backends), "+"))
		if r.Source != "" {
			fmt.Printf("    %s\n", r.Source)
		}
	}
	fmt.Printf("\n%d result(s) in %s\n", len(results), formatDuration(elapsed))
}

func backendNames(backends []retrieval.Backend) []string {
	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = string(b)
	}
	return names
}
