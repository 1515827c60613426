package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/fiscflow/receipt-ocr/receipt"
)

// skipKeywords mark lines belonging to the header, payment, or footer
// sections of a receipt rather than to purchased items.
var skipKeywords = []string{
	"subtotal", "total", "tax", "change", "cash", "credit", "debit",
	"visa", "mastercard", "thank you", "receipt", "date", "time",
	"approved", "customer", "member", "number", "reference", "invoice",
}

var (
	priceRe    = regexp.MustCompile(`^\$?(\d+\.\d{2})$`)
	quantityRe = regexp.MustCompile(`(?i)^(\d+\.?\d*)\s*x?\s*(.+)$`)
)

const (
	// maxLookback bounds how many lines above a price-only line are searched
	// for the item name.
	maxLookback = 10
	// maxOrphanPrice filters price-only lines that are more likely totals
	// than items.
	maxOrphanPrice = 50.0
	// defaultItemConfidence applies when the provider reports no word scores.
	defaultItemConfidence = 0.8
)

// lineItems extracts purchased items from visual lines. A line contributes an
// item when it carries a price-shaped token; the item name is taken from the
// words left of the price, or, for price-only lines (multi-line store formats
// like Costco), from the nearest unused name line above. Names and lines are
// tracked in seen-sets so one name line never feeds two prices.
func lineItems(lines []Line) []receipt.LineItem {
	var items []receipt.LineItem
	usedNames := make(map[string]bool)
	usedLines := make(map[int]bool)

	for idx, line := range lines {
		if len(line.Words) == 0 {
			continue
		}
		if containsSkipKeyword(line.Text()) {
			continue
		}

		price, nameWords, found := splitPrice(line)
		if !found || price == 0 {
			continue
		}

		if len(nameWords) == 0 && idx > 0 {
			if price > maxOrphanPrice {
				continue
			}
			nameWords = lookBack(lines, idx, usedNames, usedLines)
		}
		if len(nameWords) == 0 {
			continue
		}

		name := strings.TrimSpace(Line{Words: nameWords}.Text())
		if len(name) <= 2 || digitsOnly(name) {
			continue
		}

		quantity, unitPrice := 1.0, price
		if m := quantityRe.FindStringSubmatch(name); m != nil {
			if q, err := strconv.ParseFloat(m[1], 64); err == nil {
				quantity = q
				name = strings.TrimSpace(m[2])
				if quantity > 0 {
					unitPrice = math.Round(price/quantity*100) / 100
				}
			}
		}

		usedNames[strings.ToUpper(name)] = true
		items = append(items, receipt.LineItem{
			Name:       name,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			TotalPrice: price,
			Confidence: itemConfidence(nameWords),
		})
	}

	return items
}

// splitPrice finds the first price-shaped word on the line. It returns the
// parsed price, the words left of it, and whether a price was present.
func splitPrice(line Line) (float64, []Word, bool) {
	for i, w := range line.Words {
		m := priceRe.FindStringSubmatch(w.Text)
		if m == nil {
			continue
		}
		price, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return price, line.Words[:i], true
	}
	return 0, nil, false
}

// lookBack walks up to maxLookback lines above idx for a plausible item name:
// not already consumed, not a keyword or numeric line, at least three
// characters, and containing a letter.
func lookBack(lines []Line, idx int, usedNames map[string]bool, usedLines map[int]bool) []Word {
	for back := 1; back <= maxLookback && back <= idx; back++ {
		prev := idx - back
		if usedLines[prev] {
			continue
		}
		text := lines[prev].Text()
		if containsSkipKeyword(text) {
			continue
		}
		if digitsOnly(strings.ReplaceAll(text, " ", "")) {
			continue
		}
		if len(text) < 3 {
			continue
		}
		if usedNames[strings.ToUpper(text)] {
			continue
		}
		if strings.ContainsFunc(text, unicode.IsLetter) {
			usedLines[prev] = true
			return lines[prev].Words
		}
	}
	return nil
}

func containsSkipKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range skipKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// itemConfidence is the mean of the name words' OCR confidences, or the
// default when the provider reported none.
func itemConfidence(words []Word) float64 {
	var sum float64
	var n int
	for _, w := range words {
		if w.Confidence > 0 {
			sum += w.Confidence
			n++
		}
	}
	if n == 0 {
		return defaultItemConfidence
	}
	return sum / float64(n)
}
