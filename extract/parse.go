package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fiscflow/receipt-ocr/receipt"
)

var (
	// Lines matching any of these near the top of the receipt are headers or
	// contact noise, not the merchant name.
	merchantIgnoreRes = []*regexp.Regexp{
		regexp.MustCompile(`receipt`),
		regexp.MustCompile(`invoice`),
		regexp.MustCompile(`bill`),
		regexp.MustCompile(`^\d+$`),
		regexp.MustCompile(`^tel:`),
		regexp.MustCompile(`^www\.`),
	}
	merchantCleanRe = regexp.MustCompile(`[^a-zA-Z0-9\s\-&.]`)

	dateRes = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}`),
		regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}`),
	}

	totalRes = []*regexp.Regexp{
		regexp.MustCompile(`total[:\s]+\$?\s*(\d+\.\d{2})`),
		regexp.MustCompile(`amount[:\s]+\$?\s*(\d+\.\d{2})`),
	}
	taxRes = []*regexp.Regexp{
		regexp.MustCompile(`tax[:\s]+\$?\s*(\d+\.\d{2})`),
		regexp.MustCompile(`vat[:\s]+\$?\s*(\d+\.\d{2})`),
	}
	tipRes = []*regexp.Regexp{
		regexp.MustCompile(`tip[:\s]+\$?\s*(\d+\.\d{2})`),
		regexp.MustCompile(`gratuity[:\s]+\$?\s*(\d+\.\d{2})`),
	}
)

// DateLayouts are the date formats recognized on receipts, tried in order.
var DateLayouts = []string{
	"01/02/2006",
	"01-02-2006",
	"2006/01/02",
	"2006-01-02",
	"01/02/06",
	"01-02-06",
}

// Parse applies the receipt heuristics to an OCR document and returns the
// structured record. Unrecognized fields are left as zero values.
func Parse(doc Document) *receipt.Receipt {
	text := doc.Text
	if text == "" && len(doc.Lines) > 0 {
		parts := make([]string, len(doc.Lines))
		for i, l := range doc.Lines {
			parts[i] = l.Text()
		}
		text = strings.Join(parts, "\n")
	}

	confidence := doc.Confidence
	if confidence == 0 {
		confidence = 1.0
	}

	rec := &receipt.Receipt{
		RawText:    text,
		Currency:   "USD",
		Confidence: confidence,
	}

	rec.MerchantName = merchantName(text)
	rec.Date = receiptDate(text)
	rec.Total = amountOnLine(text, totalRes)
	rec.Tax = amountOnLine(text, taxRes)
	rec.Tip = amountOnLine(text, tipRes)

	lines := doc.Lines
	if len(lines) == 0 {
		lines = LinesFromText(text)
	}
	rec.Items = lineItems(lines)

	return rec
}

// merchantName returns the first of the top five non-empty lines that is
// longer than three characters and not header noise, stripped of characters
// that are unlikely to belong to a business name.
func merchantName(text string) string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			lines = append(lines, trimmed)
			if len(lines) == 5 {
				break
			}
		}
	}

	for _, line := range lines {
		lower := strings.ToLower(line)
		ignored := false
		for _, re := range merchantIgnoreRes {
			if re.MatchString(lower) {
				ignored = true
				break
			}
		}
		if ignored || len(line) <= 3 {
			continue
		}
		return strings.TrimSpace(merchantCleanRe.ReplaceAllString(line, ""))
	}

	return ""
}

// receiptDate returns the first date-looking string that parses under one of
// DateLayouts, or the zero time.
func receiptDate(text string) time.Time {
	for _, re := range dateRes {
		match := re.FindString(text)
		if match == "" {
			continue
		}
		for _, layout := range DateLayouts {
			if t, err := time.Parse(layout, match); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// amountOnLine scans lines bottom-up (totals sit near the end of a receipt)
// for the first labeled dollar amount matching one of the patterns.
func amountOnLine(text string, res []*regexp.Regexp) float64 {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		lower := strings.ToLower(lines[i])
		for _, re := range res {
			m := re.FindStringSubmatch(lower)
			if m == nil {
				continue
			}
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				return v
			}
		}
	}
	return 0
}
