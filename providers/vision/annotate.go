package vision

import (
	"strings"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/fiscflow/receipt-ocr/extract"
	"github.com/fiscflow/receipt-ocr/receipt"
)

// parseAnnotation converts a full-text annotation into positioned words and
// runs the receipt heuristics over them.
func parseAnnotation(annotation *visionpb.TextAnnotation) *receipt.Receipt {
	var words []extract.Word
	var confSum float64
	var confN int

	for _, page := range annotation.GetPages() {
		for _, block := range page.GetBlocks() {
			for _, para := range block.GetParagraphs() {
				for _, w := range para.GetWords() {
					word := annotatedWord(w)
					if word.Text == "" {
						continue
					}
					words = append(words, word)
					if word.Confidence > 0 {
						confSum += word.Confidence
						confN++
					}
				}
			}
		}
	}

	doc := extract.Document{
		Text:  annotation.GetText(),
		Lines: extract.GroupWords(words, 0),
	}
	if confN > 0 {
		doc.Confidence = confSum / float64(confN)
	}

	return extract.Parse(doc)
}

// annotatedWord flattens one Vision word: symbol texts joined, position the
// mean of the bounding box vertices.
func annotatedWord(w *visionpb.Word) extract.Word {
	var sb strings.Builder
	for _, s := range w.GetSymbols() {
		sb.WriteString(s.GetText())
	}

	var x, y float64
	if vertices := w.GetBoundingBox().GetVertices(); len(vertices) > 0 {
		var sx, sy int32
		for _, v := range vertices {
			sx += v.GetX()
			sy += v.GetY()
		}
		x = float64(sx) / float64(len(vertices))
		y = float64(sy) / float64(len(vertices))
	}

	return extract.Word{
		Text:       sb.String(),
		X:          x,
		Y:          y,
		Confidence: float64(w.GetConfidence()),
	}
}
