// Package imaging normalizes receipt inputs for OCR providers. Phone photos
// arrive as JPEG or HEIC, scans as PDF; providers want PNG. Everything here
// converts toward PNG and sniffs content types the standard library cannot.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"net/http"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// DetectContentType sniffs the MIME type of raw receipt bytes. It extends the
// standard library sniffer with HEIC/HEIF detection, which net/http reports
// as application/octet-stream.
func DetectContentType(data []byte) string {
	if IsHEIC(data) {
		return "image/heic"
	}
	return http.DetectContentType(data)
}

// Normalize converts receipt bytes to PNG. PDFs are rendered (first page,
// receipts are single page in practice), HEIC and other image formats are
// re-encoded, PNG passes through. It returns the PNG bytes, the resulting
// MIME type, and whether a conversion happened. An empty contentType is
// sniffed from the data.
func Normalize(data []byte, contentType string) ([]byte, string, bool, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = DetectContentType(data)
	}

	switch {
	case mimeType == "application/pdf":
		pngData, err := pdfToPNG(data)
		if err != nil {
			return nil, "", false, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, "image/png", true, nil
	case mimeType != "image/png" || IsHEIC(data) || isHEICMime(mimeType):
		pngData, err := imageToPNG(data, mimeType)
		if err != nil {
			return nil, "", false, fmt.Errorf("converting image to PNG: %w", err)
		}
		return pngData, "image/png", true, nil
	}

	return data, "image/png", false, nil
}

// pdfToPNG renders the first page of a PDF as PNG.
func pdfToPNG(data []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// imageToPNG re-encodes any supported image format as PNG.
func imageToPNG(data []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	if IsHEIC(data) || isHEICMime(mimeType) {
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image (supported formats: JPEG, PNG, GIF, HEIC, PDF): %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// IsHEIC reports whether the data carries an ISO-BMFF ftyp box with a
// HEIC/HEIF brand, the container iPhones produce.
func IsHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMime(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
