// Package vision extracts receipts with the Google Cloud Vision document
// text API. Importing it registers the "google_vision" provider.
package vision

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	receiptocr "github.com/fiscflow/receipt-ocr"
	"github.com/fiscflow/receipt-ocr/internal/imaging"
	"github.com/fiscflow/receipt-ocr/receipt"
)

func init() {
	receiptocr.Register("google_vision", func(ctx context.Context, cfg receiptocr.Config) (receiptocr.Provider, error) {
		return New(ctx, cfg)
	})
}

// Provider recognizes receipts through the Vision document text API.
type Provider struct {
	client *vision.ImageAnnotatorClient
}

// New creates a Vision provider. cfg.CredentialsFile selects a service
// account file; without it, application default credentials apply.
func New(ctx context.Context, cfg receiptocr.Config) (*Provider, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}
	return &Provider{client: client}, nil
}

// Extract sends the receipt image to Vision and parses the returned
// annotation.
func (p *Provider) Extract(ctx context.Context, in receiptocr.Input) (*receipt.Receipt, error) {
	data, _, _, err := imaging.Normalize(in.Data, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("normalizing image: %w", err)
	}

	annotation, err := p.client.DetectDocumentText(ctx, &visionpb.Image{Content: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("detecting document text: %w", err)
	}
	if annotation == nil {
		return nil, fmt.Errorf("no text detected in image")
	}

	return parseAnnotation(annotation), nil
}

// Close releases the underlying API client.
func (p *Provider) Close() error {
	return p.client.Close()
}
