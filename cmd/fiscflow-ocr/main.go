package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	receiptocr "github.com/fiscflow/receipt-ocr"
	"github.com/fiscflow/receipt-ocr/receipt"

	_ "github.com/fiscflow/receipt-ocr/providers/gemini"
	_ "github.com/fiscflow/receipt-ocr/providers/ollama"
	_ "github.com/fiscflow/receipt-ocr/providers/tesseract"
	_ "github.com/fiscflow/receipt-ocr/providers/textract"
	_ "github.com/fiscflow/receipt-ocr/providers/vision"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("fiscflow-ocr")
	var (
		providerName  = fs.StringLong("provider", "google_vision", "OCR provider: google_vision, aws_textract, tesseract, gemini, or ollama")
		credentials   = fs.StringLong("credentials", "", "Google service account credentials file (or use application default credentials)")
		region        = fs.StringLong("region", "", "AWS region for Textract (defaults to the environment)")
		apiKey        = fs.StringLong("api-key", "", "API key for the gemini provider (or set GEMINI_API_KEY env var)")
		model         = fs.StringLong("model", "", "Model name override for the gemini and ollama providers")
		ollamaURL     = fs.StringLong("ollama-url", "", "Ollama API base URL (default http://localhost:11434)")
		languages     = fs.StringLong("languages", "", "Comma-separated recognition languages for tesseract (e.g. eng,deu)")
		minConfidence = fs.Float64Long("min-confidence", 0.5, "Drop line items recognized below this confidence")
		concurrency   = fs.IntLong("concurrency", 1, "Parallel provider calls when extracting multiple files")
		rateLimit     = fs.Float64Long("rate-limit", 0, "Max provider calls per second (0 = unlimited)")
		jsonOut       = fs.BoolLong("json", "Print results as JSON instead of a summary")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FISCFLOW"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	files := fs.GetArgs()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: at least one receipt file is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []receiptocr.Option{
		receiptocr.WithMinConfidence(*minConfidence),
		receiptocr.WithConcurrency(*concurrency),
		receiptocr.WithRateLimit(*rateLimit),
	}
	if *credentials != "" {
		opts = append(opts, receiptocr.WithCredentialsFile(*credentials))
	}
	if *region != "" {
		opts = append(opts, receiptocr.WithRegion(*region))
	}
	// Get the API key from the flag or environment
	key := *apiKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if key != "" {
		opts = append(opts, receiptocr.WithAPIKey(key))
	}
	if *model != "" {
		opts = append(opts, receiptocr.WithModel(*model))
	}
	if *ollamaURL != "" {
		opts = append(opts, receiptocr.WithBaseURL(*ollamaURL))
	}
	if langs := splitLanguages(*languages); len(langs) > 0 {
		opts = append(opts, receiptocr.WithLanguages(langs...))
	}

	slog.Info("Initializing provider...", "provider", *providerName)
	client, err := receiptocr.New(ctx, *providerName, opts...)
	if err != nil {
		slog.Error("Failed to initialize provider", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	images := make([][]byte, len(files))
	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Error("Failed to read receipt file", "file", path, "error", err)
			os.Exit(1)
		}
		images[i] = data
	}

	slog.Info("Extracting receipts...", "count", len(files))
	receipts, err := client.ExtractBatch(ctx, images)
	if err != nil {
		slog.Error("Failed to extract receipts", "error", err)
		os.Exit(1)
	}

	if *jsonOut {
		out, err := json.MarshalIndent(receipts, "", "  ")
		if err != nil {
			slog.Error("Failed to encode results", "error", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	for i, rec := range receipts {
		printReceipt(files[i], rec)
	}
}

func splitLanguages(s string) []string {
	var langs []string
	for _, lang := range strings.Split(s, ",") {
		if lang = strings.TrimSpace(lang); lang != "" {
			langs = append(langs, lang)
		}
	}
	return langs
}

func printReceipt(path string, rec *receipt.Receipt) {
	fmt.Printf("%s:\n", path)
	fmt.Printf("  Merchant:   %s\n", orDash(rec.MerchantName))
	date := "-"
	if !rec.Date.IsZero() {
		date = rec.Date.Format("2006-01-02")
	}
	fmt.Printf("  Date:       %s\n", date)
	fmt.Printf("  Total:      %s\n", money(rec.Total, rec.Currency))
	fmt.Printf("  Tax:        %s\n", money(rec.Tax, rec.Currency))
	if rec.Tip > 0 {
		fmt.Printf("  Tip:        %s\n", money(rec.Tip, rec.Currency))
	}
	fmt.Printf("  Confidence: %.2f\n", rec.Confidence)
	if len(rec.Items) > 0 {
		fmt.Println("  Items:")
		for _, item := range rec.Items {
			fmt.Printf("    %g x %-28s %10.2f\n", item.Quantity, item.Name, item.TotalPrice)
		}
	}
	fmt.Println()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func money(v float64, currency string) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f %s", v, currency)
}
