package receipt

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Validation errors returned by Receipt.Validate.
var (
	ErrNoMerchant        = errors.New("receipt has no merchant name")
	ErrItemTotalMismatch = errors.New("line items do not sum to receipt total")
)

// LineItem is a single purchased item from a receipt.
type LineItem struct {
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	Confidence float64 `json:"confidence"`
}

// Receipt is the structured record produced by one extraction call. Amounts
// are dollars. Fields the provider could not recognize are left as zero
// values.
type Receipt struct {
	MerchantName string     `json:"merchant_name"`
	Total        float64    `json:"receipt_total"`
	Date         time.Time  `json:"receipt_date"`
	Tax          float64    `json:"tax_amount"`
	Tip          float64    `json:"tip_amount"`
	Items        []LineItem `json:"items"`
	Currency     string     `json:"currency"`
	Confidence   float64    `json:"confidence"`
	RawText      string     `json:"raw_text"`
	ID           string     `json:"receipt_id,omitempty"`
}

// AddItem appends a line item to the receipt.
func (r *Receipt) AddItem(item LineItem) {
	r.Items = append(r.Items, item)
}

// ItemsTotal returns the sum of the line item total prices.
func (r *Receipt) ItemsTotal() float64 {
	var sum float64
	for _, item := range r.Items {
		sum += item.TotalPrice
	}
	return sum
}

// Validate checks the extracted record for internal consistency: a merchant
// name must be present, and when both a total and line items were recognized
// the items must sum to within 10% of the total.
func (r *Receipt) Validate() error {
	if r.MerchantName == "" {
		return ErrNoMerchant
	}

	if r.Total != 0 && len(r.Items) > 0 {
		diff := math.Abs(r.ItemsTotal() - r.Total)
		if diff > r.Total*0.1 {
			return fmt.Errorf("%w: items sum to %.2f, total is %.2f", ErrItemTotalMismatch, r.ItemsTotal(), r.Total)
		}
	}

	return nil
}
