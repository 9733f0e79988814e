// Command ingest-csv posts feedback rows from a CSV file to the API.
//
// The header row names the columns. Recognized columns are tenantId (or tenant_id),
// rate and text (or description); others are ignored.
//
// Usage:
//
//	go run ./cmd/ingest-csv -file feedback.csv -api-url http://localhost:8080 -api-key YOUR_API_KEY
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/insightflow/hub/pkg/hub"
)

// Config holds the CLI configuration
type Config struct {
	FilePath   string
	APIBaseURL string
	APIKey     string
	TenantID   string
	DelayMS    int
	DryRun     bool
}

// Stats tracks ingestion statistics
type Stats struct {
	TotalRows       int
	SkippedEmpty    int
	SkippedInvalid  int
	SuccessfulPosts int
	FailedPosts     int
}

type feedbackIngester interface {
	IngestFeedback(ctx context.Context, req *hub.IngestFeedbackRequest) (*hub.FeedbackRecord, error)
}

func main() {
	cfg := parseFlags()

	if cfg.FilePath == "" {
		fmt.Println("Error: -file is required")
		flag.Usage()
		os.Exit(1)
	}

	if cfg.APIKey == "" && !cfg.DryRun {
		fmt.Println("Error: -api-key is required")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file, err := os.Open(cfg.FilePath)
	if err != nil {
		fmt.Printf("Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = file.Close() }()

	fmt.Printf("Feedback CSV ingestion\n")
	fmt.Printf("   API URL:  %s\n", cfg.APIBaseURL)
	fmt.Printf("   CSV file: %s\n", cfg.FilePath)
	if cfg.DryRun {
		fmt.Printf("   DRY RUN - no API calls will be made\n")
	}
	fmt.Println()

	client := hub.NewClient(hub.ClientOptions{BaseURL: cfg.APIBaseURL, APIKey: cfg.APIKey})

	stats, err := processCSV(ctx, file, client, cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Ingestion summary")
	fmt.Printf("   Total rows processed:  %d\n", stats.TotalRows)
	fmt.Printf("   Skipped (empty):       %d\n", stats.SkippedEmpty)
	fmt.Printf("   Skipped (invalid):     %d\n", stats.SkippedInvalid)
	fmt.Printf("   Successfully created:  %d\n", stats.SuccessfulPosts)
	fmt.Printf("   Failed:                %d\n", stats.FailedPosts)

	if stats.FailedPosts > 0 {
		os.Exit(1)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.FilePath, "file", "", "Path to CSV file (required)")
	flag.StringVar(&cfg.APIBaseURL, "api-url", "http://localhost:8080", "API base URL")
	flag.StringVar(&cfg.APIKey, "api-key", os.Getenv("API_KEY"), "API key for authentication (required, defaults to $API_KEY)")
	flag.StringVar(&cfg.TenantID, "tenant-id", "", "Tenant ID for rows without a tenantId column")
	flag.IntVar(&cfg.DelayMS, "delay", 100, "Delay in milliseconds between API calls")
	flag.BoolVar(&cfg.DryRun, "dry-run", false, "Parse CSV but don't make API calls")

	flag.Parse()

	return cfg
}

// columns maps recognized header names to their index. -1 means absent.
type columns struct {
	tenant int
	rate   int
	text   int
}

func parseHeader(header []string) (columns, error) {
	cols := columns{tenant: -1, rate: -1, text: -1}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "tenantid", "tenant_id":
			cols.tenant = i
		case "rate", "rating":
			cols.rate = i
		case "text", "description", "feedback":
			cols.text = i
		}
	}

	if cols.text < 0 {
		return cols, errors.New("CSV header has no text column")
	}

	return cols, nil
}

// rowToRequest builds the request for one row. It returns nil for rows without text.
func rowToRequest(row []string, cols columns, defaultTenant string) (*hub.IngestFeedbackRequest, error) {
	text := strings.TrimSpace(safeGet(row, cols.text))
	if text == "" {
		return nil, nil //nolint:nilnil // empty row is skipped, not an error
	}

	req := &hub.IngestFeedbackRequest{Text: text, TenantID: defaultTenant}

	if tenant := strings.TrimSpace(safeGet(row, cols.tenant)); tenant != "" {
		req.TenantID = tenant
	}

	if req.TenantID == "" {
		return nil, errors.New("no tenant id")
	}

	if raw := strings.TrimSpace(safeGet(row, cols.rate)); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q", raw)
		}

		if rate < 0 || rate > 5 {
			return nil, fmt.Errorf("rate %v out of range 0..5", rate)
		}

		req.Rate = &rate
	}

	return req, nil
}

func processCSV(ctx context.Context, r io.Reader, client feedbackIngester, cfg Config) (Stats, error) {
	stats := Stats{}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return stats, fmt.Errorf("failed to read header: %w", err)
	}

	cols, err := parseHeader(header)
	if err != nil {
		return stats, err
	}

	delay := time.Duration(cfg.DelayMS) * time.Millisecond

	for rowNum := 2; ; rowNum++ {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			fmt.Printf("   Row %d: error reading: %v\n", rowNum, err)
			stats.SkippedInvalid++

			continue
		}

		stats.TotalRows++

		req, err := rowToRequest(row, cols, cfg.TenantID)
		if err != nil {
			fmt.Printf("   Row %d: skipped: %v\n", rowNum, err)
			stats.SkippedInvalid++

			continue
		}

		if req == nil {
			stats.SkippedEmpty++
			continue
		}

		if cfg.DryRun {
			fmt.Printf("   [DRY] Row %d: would ingest feedback for tenant %s\n", rowNum, req.TenantID)
			stats.SuccessfulPosts++

			continue
		}

		record, err := client.IngestFeedback(ctx, req)
		if err != nil {
			fmt.Printf("   Row %d: failed: %v\n", rowNum, err)
			stats.FailedPosts++
		} else {
			fmt.Printf("   Row %d: %s (%s)\n", rowNum, record.ID, record.Sentiment)
			stats.SuccessfulPosts++
		}

		if delay > 0 {
			time.Sleep(delay)
		}
	}

	return stats, nil
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return row[idx]
}
