// Package llmjson parses the JSON that vision-LLM providers return for
// receipt scans. Models wrap their output in markdown fences or prose more
// often than not, so parsing tolerates both before decoding.
package llmjson

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fiscflow/receipt-ocr/extract"
	"github.com/fiscflow/receipt-ocr/receipt"
)

// Prompt is the shared instruction used by all vision-LLM providers.
const Prompt = `You are analyzing a receipt or invoice. Carefully read all text in the image and extract the following information:

1. **Merchant**: the store or business name, usually the largest text at the top of the receipt. Examples: "COSTCO WHOLESALE", "CVS Pharmacy", "Walgreens".

2. **Date**: the transaction or purchase date, converted to ISO 8601 format (YYYY-MM-DD). Common printed formats: MM/DD/YYYY, DD-MM-YYYY, or written dates.

3. **Total**: the final total or amount due, usually at the bottom, labeled "TOTAL", "Amount Due", or similar. Extract only the numeric value (e.g., 42.75 for $42.75).

4. **Tax**: the sales tax or VAT amount, if printed.

5. **Tip**: the tip or gratuity amount, if printed.

6. **Currency**: the ISO 4217 currency code, e.g. "USD".

7. **Items**: every purchased line item with its name, quantity, unit price, and total price. Do not include subtotals, tax lines, change, or payment lines as items.

Return ONLY valid JSON in this exact format:
{
  "merchant": "Store Name",
  "date": "YYYY-MM-DD",
  "total": 0.00,
  "tax": 0.00,
  "tip": 0.00,
  "currency": "USD",
  "items": [
    {"name": "Item Name", "quantity": 1, "unit_price": 0.00, "total_price": 0.00}
  ]
}

Important:
- Amounts must be numbers (not strings) representing dollars and cents
- The date must be in YYYY-MM-DD format
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// itemConfidence is assigned to LLM items, which come without per-word OCR
// scores.
const itemConfidence = 0.8

// Item is one line item as reported by the model.
type Item struct {
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// Payload is the JSON schema the prompt asks the model for.
type Payload struct {
	Merchant string  `json:"merchant"`
	Date     string  `json:"date"`
	Total    float64 `json:"total"`
	Tax      float64 `json:"tax"`
	Tip      float64 `json:"tip"`
	Currency string  `json:"currency"`
	Items    []Item  `json:"items"`
}

// Parse decodes a model response into a Payload. It strips markdown code
// fences, slices out the outermost JSON object, and normalizes the date to
// YYYY-MM-DD; a date that parses under no known layout is cleared rather
// than guessed.
func Parse(text string) (*Payload, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	end := strings.LastIndex(text, "}")
	if end == -1 || end < start {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[start : end+1]

	var payload Payload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	payload.Merchant = strings.TrimSpace(payload.Merchant)
	payload.Date = normalizeDate(payload.Date)

	return &payload, nil
}

// normalizeDate re-formats a model-reported date as YYYY-MM-DD, trying the
// ISO layout first and then the printed receipt layouts.
func normalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return ""
	}
	for _, layout := range append([]string{"2006-01-02"}, extract.DateLayouts...) {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// Receipt converts the payload into the structured record. Missing unit or
// total prices are derived from each other where the arithmetic allows.
func (p *Payload) Receipt() *receipt.Receipt {
	rec := &receipt.Receipt{
		MerchantName: p.Merchant,
		Total:        p.Total,
		Tax:          p.Tax,
		Tip:          p.Tip,
		Currency:     p.Currency,
		Confidence:   1.0,
	}
	if rec.Currency == "" {
		rec.Currency = "USD"
	}
	if p.Date != "" {
		if t, err := time.Parse("2006-01-02", p.Date); err == nil {
			rec.Date = t
		}
	}

	for _, it := range p.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		item := receipt.LineItem{
			Name:       name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
			Confidence: itemConfidence,
		}
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		if item.UnitPrice == 0 && item.TotalPrice != 0 {
			item.UnitPrice = round2(item.TotalPrice / item.Quantity)
		}
		if item.TotalPrice == 0 && item.UnitPrice != 0 {
			item.TotalPrice = round2(item.UnitPrice * item.Quantity)
		}
		rec.AddItem(item)
	}

	return rec
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
