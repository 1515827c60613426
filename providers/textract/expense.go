package textract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/fiscflow/receipt-ocr/extract"
	"github.com/fiscflow/receipt-ocr/receipt"
)

var moneyRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// parseExpense maps one Textract expense document onto the receipt record.
// Summary fields carry the receipt-level values; line item groups carry the
// items. Fields Textract missed are filled from the heuristics over the raw
// recognized lines.
func parseExpense(doc types.ExpenseDocument) *receipt.Receipt {
	rec := &receipt.Receipt{Currency: "USD"}

	var confSum float64
	var confN int

	for _, f := range doc.SummaryFields {
		value := fieldValue(f)
		if value == "" {
			continue
		}
		if c := fieldConfidence(f); c > 0 {
			confSum += c
			confN++
		}
		switch fieldType(f) {
		case "VENDOR_NAME":
			if rec.MerchantName == "" {
				rec.MerchantName = value
			}
		case "INVOICE_RECEIPT_DATE":
			if rec.Date.IsZero() {
				rec.Date = parseDate(value)
			}
		case "TOTAL":
			if rec.Total == 0 {
				rec.Total = parseMoney(value)
			}
		case "TAX":
			if rec.Tax == 0 {
				rec.Tax = parseMoney(value)
			}
		case "GRATUITY":
			if rec.Tip == 0 {
				rec.Tip = parseMoney(value)
			}
		}
	}

	for _, group := range doc.LineItemGroups {
		for _, li := range group.LineItems {
			item, ok := lineItem(li)
			if !ok {
				continue
			}
			if c := item.Confidence; c > 0 {
				confSum += c
				confN++
			}
			rec.AddItem(item)
		}
	}

	rec.RawText = blockText(doc.Blocks)
	fillFromRawText(rec)

	if confN > 0 {
		rec.Confidence = confSum / float64(confN)
	} else {
		rec.Confidence = 1.0
	}
	return rec
}

// fillFromRawText runs the rule-based extractor over the recognized lines
// and keeps its values for any field the expense analysis left empty.
func fillFromRawText(rec *receipt.Receipt) {
	if rec.RawText == "" {
		return
	}
	complete := rec.MerchantName != "" && !rec.Date.IsZero() &&
		rec.Total != 0 && len(rec.Items) > 0
	if complete {
		return
	}

	fallback := extract.Parse(extract.DocumentFromText(rec.RawText))
	if rec.MerchantName == "" {
		rec.MerchantName = fallback.MerchantName
	}
	if rec.Date.IsZero() {
		rec.Date = fallback.Date
	}
	if rec.Total == 0 {
		rec.Total = fallback.Total
	}
	if rec.Tax == 0 {
		rec.Tax = fallback.Tax
	}
	if rec.Tip == 0 {
		rec.Tip = fallback.Tip
	}
	if len(rec.Items) == 0 {
		rec.Items = fallback.Items
	}
}

// lineItem assembles one receipt item from a Textract line item row. Rows
// without a name and a price are noise (product codes, row markers).
func lineItem(fields types.LineItemFields) (receipt.LineItem, bool) {
	var item receipt.LineItem
	var confSum float64
	var confN int

	for _, f := range fields.LineItemExpenseFields {
		value := fieldValue(f)
		if value == "" {
			continue
		}
		switch fieldType(f) {
		case "ITEM":
			item.Name = value
		case "PRICE":
			item.TotalPrice = parseMoney(value)
		case "UNIT_PRICE":
			item.UnitPrice = parseMoney(value)
		case "QUANTITY":
			item.Quantity = parseMoney(value)
		default:
			continue
		}
		if c := fieldConfidence(f); c > 0 {
			confSum += c
			confN++
		}
	}

	if item.Name == "" || item.TotalPrice <= 0 {
		return item, false
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if item.UnitPrice == 0 {
		item.UnitPrice = round2(item.TotalPrice / item.Quantity)
	}
	if confN > 0 {
		item.Confidence = confSum / float64(confN)
	}
	return item, true
}

// blockText reconstructs the recognized text from the expense document's
// LINE blocks, top to bottom as Textract reports them.
func blockText(blocks []types.Block) string {
	var lines []string
	for _, b := range blocks {
		if b.BlockType != types.BlockTypeLine {
			continue
		}
		if text := aws.ToString(b.Text); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

func fieldType(f types.ExpenseField) string {
	if f.Type == nil {
		return ""
	}
	return aws.ToString(f.Type.Text)
}

func fieldValue(f types.ExpenseField) string {
	if f.ValueDetection == nil {
		return ""
	}
	return strings.TrimSpace(aws.ToString(f.ValueDetection.Text))
}

// fieldConfidence normalizes Textract's 0-100 score to the 0-1 range used
// everywhere else.
func fieldConfidence(f types.ExpenseField) float64 {
	if f.ValueDetection == nil || f.ValueDetection.Confidence == nil {
		return 0
	}
	return float64(*f.ValueDetection.Confidence) / 100
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range append([]string{"2006-01-02"}, extract.DateLayouts...) {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseMoney(value string) float64 {
	value = strings.ReplaceAll(value, ",", "")
	m := moneyRe.FindString(value)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
