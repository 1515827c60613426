package extract

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("GroupWords", func() {
	var (
		words []Word
		tol   float64
		lines []Line
	)

	BeforeEach(func() {
		tol = 0
	})

	JustBeforeEach(func() {
		lines = GroupWords(words, tol)
	})

	When("words share a visual line", func() {
		BeforeEach(func() {
			words = []Word{
				{Text: "3.49", X: 200, Y: 42},
				{Text: "MILK", X: 10, Y: 40},
			}
		})

		It("should group them into one line", func() {
			Expect(lines).To(HaveLen(1))
		})

		It("should order the words left to right", func() {
			Expect(lines[0].Text()).To(Equal("MILK 3.49"))
		})
	})

	When("words sit on distinct lines", func() {
		BeforeEach(func() {
			words = []Word{
				{Text: "BREAD", X: 10, Y: 80},
				{Text: "STORE", X: 10, Y: 10},
				{Text: "2.29", X: 200, Y: 82},
			}
		})

		It("should split them top to bottom", func() {
			Expect(lines).To(HaveLen(2))
		})

		It("should keep each line's words together", func() {
			Expect(lines[1].Text()).To(Equal("BREAD 2.29"))
		})
	})

	When("a word drifts past the tolerance from the line start", func() {
		BeforeEach(func() {
			words = []Word{
				{Text: "a", X: 10, Y: 10},
				{Text: "b", X: 50, Y: 24},
				{Text: "c", X: 90, Y: 26},
			}
		})

		It("should measure against the first word of the line", func() {
			Expect(lines).To(HaveLen(2))
			Expect(lines[0].Text()).To(Equal("a b"))
		})
	})

	When("a custom tolerance is given", func() {
		BeforeEach(func() {
			tol = 30
			words = []Word{
				{Text: "a", X: 10, Y: 10},
				{Text: "b", X: 50, Y: 26},
			}
		})

		It("should honor it", func() {
			Expect(lines).To(HaveLen(1))
		})
	})

	When("no words are given", func() {
		BeforeEach(func() {
			words = nil
		})

		It("should return nothing", func() {
			Expect(lines).To(BeEmpty())
		})
	})
})

var _ = Describe("LinesFromText", func() {
	It("should split text into lines of words", func() {
		lines := LinesFromText("STORE NAME\nMILK  3.49")
		Expect(lines).To(HaveLen(2))
		Expect(lines[1].Words).To(HaveLen(2))
	})

	It("should drop blank lines", func() {
		Expect(LinesFromText("a\n\n  \nb")).To(HaveLen(2))
	})

	It("should return nothing for empty text", func() {
		Expect(LinesFromText("")).To(BeEmpty())
	})
})

var _ = Describe("DocumentFromText", func() {
	It("should carry the text and the synthesized lines", func() {
		doc := DocumentFromText("STORE\nMILK 3.49")
		Expect(doc.Text).To(Equal("STORE\nMILK 3.49"))
		Expect(doc.Lines).To(HaveLen(2))
	})
})
