// Package textract extracts receipts with the AWS Textract expense analysis
// API. Importing it registers the "aws_textract" provider.
package textract

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	receiptocr "github.com/fiscflow/receipt-ocr"
	"github.com/fiscflow/receipt-ocr/internal/imaging"
	"github.com/fiscflow/receipt-ocr/receipt"
)

func init() {
	receiptocr.Register("aws_textract", func(ctx context.Context, cfg receiptocr.Config) (receiptocr.Provider, error) {
		return New(ctx, cfg)
	})
}

// api is the Textract surface the provider depends on.
type api interface {
	AnalyzeExpense(ctx context.Context, params *textract.AnalyzeExpenseInput, optFns ...func(*textract.Options)) (*textract.AnalyzeExpenseOutput, error)
}

// Provider recognizes receipts through Textract expense analysis.
type Provider struct {
	client api
}

// New creates a Textract provider using the default AWS credential chain.
// cfg.Region overrides the region from the environment.
func New(ctx context.Context, cfg receiptocr.Config) (*Provider, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &Provider{client: textract.NewFromConfig(awsCfg)}, nil
}

// Extract sends the receipt image to Textract and maps the expense document
// onto the record.
func (p *Provider) Extract(ctx context.Context, in receiptocr.Input) (*receipt.Receipt, error) {
	data, _, _, err := imaging.Normalize(in.Data, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("normalizing image: %w", err)
	}

	out, err := p.client.AnalyzeExpense(ctx, &textract.AnalyzeExpenseInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing expense: %w", err)
	}
	if len(out.ExpenseDocuments) == 0 {
		return nil, fmt.Errorf("no expense document detected")
	}

	return parseExpense(out.ExpenseDocuments[0]), nil
}

// Close implements the provider interface; Textract holds no connection
// state.
func (p *Provider) Close() error {
	return nil
}
