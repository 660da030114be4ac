// Command bulk-dedupe runs the dedupe pipeline against a local CSV file
// without going through the HTTP API. Useful for one-off batches and for
// replaying a file that failed mid-run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lending_crm_backend/internal/bulkdedupe/creditsea"
	"lending_crm_backend/internal/bulkdedupe/service"
	"lending_crm_backend/platform/logger"

	"github.com/joho/godotenv"
)

type creditSeaEnv struct {
	baseURL      string
	dedupeAPIKey string
	sourceID     string
	timeout      time.Duration
}

func (c creditSeaEnv) GetCreditSeaBaseURL() string        { return c.baseURL }
func (c creditSeaEnv) GetCreditSeaDedupeAPIKey() string   { return c.dedupeAPIKey }
func (c creditSeaEnv) GetCreditSeaSourceID() string       { return c.sourceID }
func (c creditSeaEnv) GetCreditSeaTimeout() time.Duration { return c.timeout }

func main() {
	inputPath := flag.String("input", "", "input CSV file (required)")
	outputPath := flag.String("output", "results.csv", "result CSV file")
	lenderList := flag.String("lenders", "creditsea", "comma-separated lender codes")
	checkDedupe := flag.Bool("check-dedupe", false, "run the dedupe check for each row")
	sendLeads := flag.Bool("send-leads", false, "create a lead for each row")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: bulk-dedupe -input leads.csv [-output results.csv] [-lenders creditsea] [-check-dedupe] [-send-leads]")
		os.Exit(2)
	}

	_ = godotenv.Load()

	log := logger.New(os.Getenv("APP_ENV"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := creditSeaEnv{
		baseURL:      envOr("CREDITSEA_BASE_URL", "https://backend.creditsea.com"),
		dedupeAPIKey: os.Getenv("CREDITSEA_DEDUPE_API_KEY"),
		sourceID:     os.Getenv("CREDITSEA_SOURCE_ID"),
		timeout:      durationOr("CREDITSEA_TIMEOUT", 30*time.Second),
	}

	registry := service.NewRegistry()
	registry.Register("creditsea", creditsea.NewClient(cfg, log))
	pipeline := service.NewPipeline(registry, log)

	input, err := os.Open(*inputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open input:", err)
		os.Exit(1)
	}
	defer input.Close()

	output, err := os.Create(*outputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create output:", err)
		os.Exit(1)
	}
	defer output.Close()

	lenders := splitLenders(*lenderList)
	summary, err := pipeline.Process(ctx, input, output, lenders, *checkDedupe, *sendLeads)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pipeline:", err)
		os.Exit(1)
	}

	fmt.Printf("processed %d rows (%d results) into %s\n", summary.Rows, summary.Results, *outputPath)
}

func splitLenders(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
