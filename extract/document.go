// Package extract maps recognized receipt text to a structured record using
// rule-based matching. It is provider-agnostic: OCR providers hand it either
// positioned words (grouped into visual lines by their coordinates) or plain
// text, and it applies the same merchant, date, amount, and line item
// heuristics to both.
package extract

import (
	"sort"
	"strings"
)

// defaultLineTolerance is the maximum vertical distance, in image pixels,
// between words considered to be on the same visual line.
const defaultLineTolerance = 15

// Word is a single recognized token with its position in the source image.
// X and Y are the averaged coordinates of the word's bounding box vertices;
// both are zero for words synthesized from plain text.
type Word struct {
	Text       string
	X          float64
	Y          float64
	Confidence float64
}

// Line is an ordered sequence of words sharing a visual line.
type Line struct {
	Words []Word
}

// Text returns the words joined by single spaces.
func (l Line) Text() string {
	parts := make([]string, len(l.Words))
	for i, w := range l.Words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// Document is the provider-agnostic OCR output handed to Parse. Text carries
// the full recognized text; Lines carries positioned words when the provider
// reports geometry. Confidence is the provider's overall score in [0, 1];
// zero means the provider did not report one.
type Document struct {
	Text       string
	Lines      []Line
	Confidence float64
}

// GroupWords assembles positioned words into visual lines: words are ordered
// top to bottom, grouped while their vertical distance from the line start
// stays below tol (pass 0 for the default tolerance), and each line is
// ordered left to right.
func GroupWords(words []Word, tol float64) []Line {
	if len(words) == 0 {
		return nil
	}
	if tol <= 0 {
		tol = defaultLineTolerance
	}

	sorted := make([]Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	var lines []Line
	current := []Word{sorted[0]}
	currentY := sorted[0].Y

	for _, w := range sorted[1:] {
		if w.Y-currentY < tol && currentY-w.Y < tol {
			current = append(current, w)
			continue
		}
		lines = append(lines, sortedLine(current))
		current = []Word{w}
		currentY = w.Y
	}
	lines = append(lines, sortedLine(current))

	return lines
}

func sortedLine(words []Word) Line {
	sort.SliceStable(words, func(i, j int) bool { return words[i].X < words[j].X })
	return Line{Words: words}
}

// LinesFromText synthesizes lines from plain text so that sources without
// positional data (PDF text layers, bare OCR output) run the same item
// heuristics. Each text line becomes one Line of whitespace-separated words
// in reading order.
func LinesFromText(text string) []Line {
	var lines []Line
	for _, raw := range strings.Split(text, "\n") {
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}
		words := make([]Word, len(fields))
		for i, f := range fields {
			words[i] = Word{Text: f}
		}
		lines = append(lines, Line{Words: words})
	}
	return lines
}

// DocumentFromText wraps plain text in a Document with synthesized lines.
func DocumentFromText(text string) Document {
	return Document{Text: text, Lines: LinesFromText(text)}
}
