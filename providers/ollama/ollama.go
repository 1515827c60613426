// Package ollama extracts receipts with a locally hosted vision model
// through the Ollama chat API. Importing it registers the "ollama"
// provider.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	receiptocr "github.com/fiscflow/receipt-ocr"
	"github.com/fiscflow/receipt-ocr/internal/imaging"
	"github.com/fiscflow/receipt-ocr/internal/llmjson"
	"github.com/fiscflow/receipt-ocr/receipt"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llava"

	// Vision models are slow, especially on CPU-only hosts.
	scanTimeout = 120 * time.Second
)

func init() {
	receiptocr.Register("ollama", func(_ context.Context, cfg receiptocr.Config) (receiptocr.Provider, error) {
		return New(cfg), nil
	})
}

// Provider recognizes receipts through a local Ollama server.
type Provider struct {
	baseURL string
	model   string
	client  *http.Client
}

// New creates an Ollama provider. cfg.BaseURL and cfg.Model override the
// local server default and the model.
//
// Recommended vision models, in order: llava:1.6 (best balance of accuracy
// and speed), llava, qwen2-vl:7b (good OCR), bakllava, llava-phi3 (smaller
// and faster, but less accurate).
func New(cfg receiptocr.Config) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: scanTimeout}
	}

	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  client,
	}
}

// chatRequest represents the request body for Ollama's chat API
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// chatResponse represents the response from Ollama's chat API
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Extract sends the receipt image and the extraction prompt to the chat API
// and parses the returned JSON.
func (p *Provider) Extract(ctx context.Context, in receiptocr.Input) (*receipt.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	data, _, _, err := imaging.Normalize(in.Data, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("normalizing image: %w", err)
	}

	reqBody := chatRequest{
		Model:  p.model,
		Stream: false,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are an expert at reading and extracting information from receipts and invoices. You must carefully read all text in images and extract accurate information.",
			},
			{
				Role:    "user",
				Content: llmjson.Prompt,
				Images:  []string{base64.StdEncoding.EncodeToString(data)},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	payload, err := llmjson.Parse(chatResp.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return payload.Receipt(), nil
}

// Close implements the provider interface; the HTTP client needs no
// teardown.
func (p *Provider) Close() error {
	return nil
}
