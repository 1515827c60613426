package imaging

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// minTextLayerChars is the number of non-whitespace characters a PDF text
// layer must carry to count as usable. Scanned receipts typically extract to
// nothing at all.
const minTextLayerChars = 32

// PDFText extracts the embedded text layer of a PDF. It returns an error for
// malformed documents; an empty string means the PDF is image-only.
func PDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("reading PDF text: %w", err)
	}
	return buf.String(), nil
}

// UsableText reports whether extracted PDF text is substantial enough to
// parse directly instead of rendering the page for OCR.
func UsableText(text string) bool {
	n := 0
	for _, f := range strings.Fields(text) {
		n += len(f)
		if n >= minTextLayerChars {
			return true
		}
	}
	return false
}
