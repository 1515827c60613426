// Package gemini extracts receipts by asking a Google Gemini vision model
// for the structured fields directly. Importing it registers the "gemini"
// provider.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	receiptocr "github.com/fiscflow/receipt-ocr"
	"github.com/fiscflow/receipt-ocr/internal/imaging"
	"github.com/fiscflow/receipt-ocr/internal/llmjson"
	"github.com/fiscflow/receipt-ocr/receipt"
)

const (
	defaultModel = "gemini-2.5-pro"
	scanTimeout  = 30 * time.Second
)

func init() {
	receiptocr.Register("gemini", func(ctx context.Context, cfg receiptocr.Config) (receiptocr.Provider, error) {
		return New(ctx, cfg)
	})
}

// Provider recognizes receipts through the Gemini API.
type Provider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// New creates a Gemini provider. cfg.APIKey is required; cfg.Model overrides
// the default model.
func New(ctx context.Context, cfg receiptocr.Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Provider{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Extract sends the receipt image and the extraction prompt to the model and
// parses the returned JSON.
func (p *Provider) Extract(ctx context.Context, in receiptocr.Input) (*receipt.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	data, _, _, err := imaging.Normalize(in.Data, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("normalizing image: %w", err)
	}

	// genai.ImageData expects just the format suffix, and normalization
	// leaves everything as PNG.
	resp, err := p.model.GenerateContent(ctx,
		genai.ImageData("png", data),
		genai.Text(llmjson.Prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	payload, err := llmjson.Parse(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return payload.Receipt(), nil
}

// Close closes the underlying API client.
func (p *Provider) Close() error {
	return p.client.Close()
}
