package receiptocr

import (
	"net/http"

	"github.com/fiscflow/receipt-ocr/feedback"
)

// Config carries the client and provider settings. Options mutate it; each
// provider reads the fields it understands and ignores the rest.
type Config struct {
	// CredentialsFile is the path to a Google service account JSON file.
	CredentialsFile string
	// Region is the AWS region used by the Textract provider.
	Region string
	// APIKey authenticates against hosted model APIs.
	APIKey string
	// Model overrides a provider's default model name.
	Model string
	// BaseURL overrides a provider's endpoint, e.g. a local Ollama server.
	BaseURL string
	// Languages are the recognition language codes for local OCR.
	Languages []string
	// HTTPClient overrides the HTTP client used by HTTP-based providers.
	HTTPClient *http.Client

	// MinConfidence drops line items recognized below this score (0 to 1).
	MinConfidence float64
	// Concurrency bounds parallel provider calls in ExtractBatch.
	Concurrency int
	// RateLimit caps provider calls per second; zero disables pacing.
	RateLimit float64
	// Feedback enables correction journaling when non-nil.
	Feedback feedback.Store
}

// Option configures the client.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		MinConfidence: 0.5,
		Concurrency:   1,
	}
}

// WithCredentialsFile sets the Google service account credentials file.
func WithCredentialsFile(path string) Option {
	return func(c *Config) {
		c.CredentialsFile = path
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(c *Config) {
		c.Region = region
	}
}

// WithAPIKey sets the API key for hosted model providers.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithModel overrides the provider's default model name.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithBaseURL overrides the provider's endpoint URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithLanguages sets the recognition languages for local OCR, e.g. "eng".
func WithLanguages(langs ...string) Option {
	return func(c *Config) {
		c.Languages = langs
	}
}

// WithHTTPClient sets the HTTP client used by HTTP-based providers.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithMinConfidence sets the line item confidence threshold. Items below it
// are dropped during postprocessing. The default is 0.5.
func WithMinConfidence(min float64) Option {
	return func(c *Config) {
		c.MinConfidence = min
	}
}

// WithConcurrency sets the number of parallel provider calls ExtractBatch may
// make. The default is 1, which processes receipts sequentially.
func WithConcurrency(n int) Option {
	return func(c *Config) {
		c.Concurrency = n
	}
}

// WithRateLimit caps provider calls at n per second across Extract and
// ExtractBatch. Zero, the default, disables pacing.
func WithRateLimit(n float64) Option {
	return func(c *Config) {
		c.RateLimit = n
	}
}

// WithFeedback enables correction journaling into the given store.
func WithFeedback(store feedback.Store) Option {
	return func(c *Config) {
		c.Feedback = store
	}
}
