// Package tesseract extracts receipts with a local Tesseract installation
// through gosseract. Importing it registers the "tesseract" provider.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	receiptocr "github.com/fiscflow/receipt-ocr"
	"github.com/fiscflow/receipt-ocr/extract"
	"github.com/fiscflow/receipt-ocr/internal/imaging"
	"github.com/fiscflow/receipt-ocr/receipt"
)

func init() {
	receiptocr.Register("tesseract", func(_ context.Context, cfg receiptocr.Config) (receiptocr.Provider, error) {
		return New(cfg), nil
	})
}

// Provider recognizes receipts with a local Tesseract installation. A fresh
// gosseract client is created per call; the factory is swappable for tests.
type Provider struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New creates a Tesseract provider. cfg.Languages selects the recognition
// languages; Tesseract's default applies when empty.
func New(cfg receiptocr.Config) *Provider {
	return &Provider{
		languages:     cfg.Languages,
		clientFactory: gosseract.NewClient,
	}
}

// Extract runs OCR over the receipt image and applies the rule-based
// extractor to the recognized words.
func (p *Provider) Extract(ctx context.Context, in receiptocr.Input) (*receipt.Receipt, error) {
	data, _, _, err := imaging.Normalize(in.Data, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("normalizing image: %w", err)
	}

	// gosseract calls are not context-aware, so honor cancellation before
	// starting the recognition.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c := p.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("setting image: %w", err)
	}
	if len(p.languages) > 0 {
		if err := c.SetLanguage(p.languages...); err != nil {
			return nil, fmt.Errorf("setting languages: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		boxes = nil
	}

	return extract.Parse(document(strings.TrimSpace(text), boxes)), nil
}

// Close implements the provider interface; clients are created per call.
func (p *Provider) Close() error {
	return nil
}

// document assembles the positioned word model from Tesseract word boxes,
// falling back to plain text lines when boxes are unavailable.
func document(text string, boxes []gosseract.BoundingBox) extract.Document {
	if len(boxes) == 0 {
		return extract.DocumentFromText(text)
	}

	words := make([]extract.Word, 0, len(boxes))
	var confSum float64
	var confN int
	for _, b := range boxes {
		token := strings.TrimSpace(b.Word)
		if token == "" {
			continue
		}
		conf := b.Confidence / 100
		words = append(words, extract.Word{
			Text:       token,
			X:          float64(b.Box.Min.X) + float64(b.Box.Dx())/2,
			Y:          float64(b.Box.Min.Y) + float64(b.Box.Dy())/2,
			Confidence: conf,
		})
		if conf > 0 {
			confSum += conf
			confN++
		}
	}
	if len(words) == 0 {
		return extract.DocumentFromText(text)
	}

	doc := extract.Document{Text: text, Lines: extract.GroupWords(words, 0)}
	if confN > 0 {
		doc.Confidence = confSum / float64(confN)
	}
	return doc
}
