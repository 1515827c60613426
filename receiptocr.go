// Package receiptocr extracts structured data from receipt images.
//
// A Client wraps one OCR provider (Google Cloud Vision, AWS Textract, local
// Tesseract, or a vision LLM) and turns raw image or PDF bytes into a
// receipt.Receipt: merchant, date, total, tax, tip, and line items, with the
// recognized raw text and a confidence score. Provider packages register
// themselves on import, so a program enables a provider by blank-importing
// its package and naming it in New.
package receiptocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fiscflow/receipt-ocr/extract"
	"github.com/fiscflow/receipt-ocr/feedback"
	"github.com/fiscflow/receipt-ocr/internal/imaging"
	"github.com/fiscflow/receipt-ocr/receipt"
)

// Input is one receipt document handed to a provider. ContentType is the
// MIME type of Data, already sniffed by the client.
type Input struct {
	Data        []byte
	ContentType string
}

// Provider performs OCR on a single receipt and returns the structured
// record.
type Provider interface {
	// Extract recognizes the receipt in the input and returns the record
	Extract(ctx context.Context, in Input) (*receipt.Receipt, error)

	// Close releases any resources held by the provider
	Close() error
}

// IDGenerator generates unique IDs for receipts and feedback entries
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates UUID string IDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Client extracts receipts through a configured provider.
type Client struct {
	provider    Provider
	cfg         Config
	limiter     *rate.Limiter
	idGenerator IDGenerator
	timeSource  TimeSource
}

// New creates a Client for the named provider. The name must have been
// registered by an imported provider package; an unknown name returns an
// error listing the registered providers.
func New(ctx context.Context, provider string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	factory, err := lookup(provider)
	if err != nil {
		return nil, err
	}
	p, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", provider, err)
	}

	return newClient(p, cfg, &defaultIDGenerator{}, &defaultTimeSource{}), nil
}

// NewWithProvider creates a Client around a caller-built Provider.
func NewWithProvider(p Provider, opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newClient(p, cfg, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewWithDeps creates a Client with custom dependencies for testing
func NewWithDeps(p Provider, idGen IDGenerator, timeSrc TimeSource, opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newClient(p, cfg, idGen, timeSrc)
}

func newClient(p Provider, cfg Config, idGen IDGenerator, timeSrc TimeSource) *Client {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	c := &Client{
		provider:    p,
		cfg:         cfg,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// Extract recognizes a single receipt from raw image or PDF bytes.
//
// PDFs carrying a usable embedded text layer are parsed directly without a
// provider round-trip; everything else goes through the provider.
func (c *Client) Extract(ctx context.Context, data []byte) (*receipt.Receipt, error) {
	return c.extract(ctx, data, "")
}

// ExtractFile reads a receipt file from disk and extracts it. The content
// type is taken from the file extension, falling back to sniffing the data.
func (c *Client) ExtractFile(ctx context.Context, path string) (*receipt.Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading receipt file: %w", err)
	}
	return c.extract(ctx, data, contentTypeForPath(path))
}

func (c *Client) extract(ctx context.Context, data []byte, contentType string) (*receipt.Receipt, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}
	if contentType == "" {
		contentType = imaging.DetectContentType(data)
	}

	// PDFs from email or banking apps usually carry the receipt as real
	// text. Prefer that over rendering the page and OCRing it back.
	if contentType == "application/pdf" {
		if text, err := imaging.PDFText(data); err == nil && imaging.UsableText(text) {
			slog.Debug("using embedded pdf text layer", "chars", len(text))
			return c.postprocess(extract.Parse(extract.DocumentFromText(text))), nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limit: %w", err)
		}
	}

	rec, err := c.provider.Extract(ctx, Input{Data: data, ContentType: contentType})
	if err != nil {
		slog.Error("Failed to extract receipt",
			"content_type", contentType,
			"image_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("extracting receipt: %w", err)
	}

	return c.postprocess(rec), nil
}

// ExtractBatch extracts several receipts, preserving input order in the
// result. Provider calls run with at most the configured concurrency, and
// the first failure cancels the remaining work.
func (c *Client) ExtractBatch(ctx context.Context, images [][]byte) ([]*receipt.Receipt, error) {
	receipts := make([]*receipt.Receipt, len(images))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, data := range images {
		g.Go(func() error {
			rec, err := c.Extract(ctx, data)
			if err != nil {
				return fmt.Errorf("receipt %d: %w", i, err)
			}
			receipts[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return receipts, nil
}

// SubmitFeedback records user corrections for a previously extracted
// receipt. It reports whether the feedback was stored: corrections are
// discarded when feedback collection is disabled or the user did not
// consent.
func (c *Client) SubmitFeedback(receiptID string, corrections map[string]any, consent bool) (bool, error) {
	if receiptID == "" {
		return false, fmt.Errorf("receipt id is required")
	}
	if c.cfg.Feedback == nil {
		return false, nil
	}
	if !consent {
		slog.Debug("discarding feedback without consent", "receipt_id", receiptID)
		return false, nil
	}

	entry := feedback.Entry{
		ID:          c.idGenerator.Generate(),
		ReceiptID:   receiptID,
		Corrections: corrections,
		Consent:     consent,
		CreatedAt:   c.timeSource.Now(),
	}
	if err := c.cfg.Feedback.Save(entry); err != nil {
		return false, fmt.Errorf("saving feedback: %w", err)
	}
	return true, nil
}

// Close releases the provider and, when configured, the feedback store.
func (c *Client) Close() error {
	err := c.provider.Close()
	if c.cfg.Feedback != nil {
		if ferr := c.cfg.Feedback.Close(); err == nil {
			err = ferr
		}
	}
	return err
}

// postprocess finalizes a provider record: line items below the confidence
// threshold are dropped, and missing ID and currency are filled in.
func (c *Client) postprocess(rec *receipt.Receipt) *receipt.Receipt {
	if c.cfg.MinConfidence > 0 {
		kept := rec.Items[:0]
		for _, item := range rec.Items {
			if item.Confidence < c.cfg.MinConfidence {
				slog.Debug("dropping low-confidence line item",
					"name", item.Name,
					"confidence", item.Confidence,
					"min_confidence", c.cfg.MinConfidence,
				)
				continue
			}
			kept = append(kept, item)
		}
		rec.Items = kept
	}
	if rec.ID == "" {
		rec.ID = c.idGenerator.Generate()
	}
	if rec.Currency == "" {
		rec.Currency = "USD"
	}
	return rec
}

// contentTypeForPath maps a receipt file extension to its MIME type. Unknown
// extensions return an empty string so the data gets sniffed instead.
func contentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".heic", ".heif":
		return "image/heic"
	case ".pdf":
		return "application/pdf"
	}
	return ""
}
