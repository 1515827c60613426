package extract

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fiscflow/receipt-ocr/receipt"
)

func textLine(words ...string) Line {
	l := Line{Words: make([]Word, len(words))}
	for i, w := range words {
		l.Words[i] = Word{Text: w}
	}
	return l
}

var _ = Describe("lineItems", func() {
	var (
		lines []Line
		items []receipt.LineItem
	)

	JustBeforeEach(func() {
		items = lineItems(lines)
	})

	When("a line carries a name and a price", func() {
		BeforeEach(func() {
			lines = []Line{textLine("ORGANIC", "MILK", "$3.49")}
		})

		It("should produce one item", func() {
			Expect(items).To(HaveLen(1))
		})

		It("should join the name words", func() {
			Expect(items[0].Name).To(Equal("ORGANIC MILK"))
		})

		It("should parse the price", func() {
			Expect(items[0].TotalPrice).To(Equal(3.49))
		})

		It("should default the quantity to one", func() {
			Expect(items[0].Quantity).To(Equal(1.0))
		})

		It("should default the confidence", func() {
			Expect(items[0].Confidence).To(Equal(0.8))
		})
	})

	When("the name starts with a quantity", func() {
		BeforeEach(func() {
			lines = []Line{textLine("2", "x", "SODA", "3.00")}
		})

		It("should split the quantity off the name", func() {
			Expect(items[0].Name).To(Equal("SODA"))
			Expect(items[0].Quantity).To(Equal(2.0))
		})

		It("should derive the unit price", func() {
			Expect(items[0].UnitPrice).To(Equal(1.50))
		})

		It("should keep the line price as the item total", func() {
			Expect(items[0].TotalPrice).To(Equal(3.00))
		})
	})

	When("the price sits on its own line below the name", func() {
		BeforeEach(func() {
			lines = []Line{
				textLine("KIRKLAND", "WATER"),
				textLine("4.99"),
			}
		})

		It("should take the name from the line above", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("KIRKLAND WATER"))
			Expect(items[0].TotalPrice).To(Equal(4.99))
		})
	})

	When("a name line sits several lines above its price", func() {
		BeforeEach(func() {
			lines = []Line{
				textLine("GOLDEN", "APPLES"),
				textLine("1234567"),
				textLine("2.99"),
			}
		})

		It("should skip numeric lines while looking back", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("GOLDEN APPLES"))
		})
	})

	When("one name line precedes two price lines", func() {
		BeforeEach(func() {
			lines = []Line{
				textLine("APPLES"),
				textLine("2.99"),
				textLine("3.99"),
			}
		})

		It("should not reuse the name", func() {
			Expect(items).To(HaveLen(1))
		})
	})

	When("an orphan price looks like a total", func() {
		BeforeEach(func() {
			lines = []Line{
				textLine("SOME", "HEADER"),
				textLine("89.99"),
			}
		})

		It("should not turn it into an item", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("a line carries a payment or summary keyword", func() {
		BeforeEach(func() {
			lines = []Line{
				textLine("SUBTOTAL", "10.77"),
				textLine("VISA", "11.63"),
				textLine("CHANGE", "0.00"),
			}
		})

		It("should skip it", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("the price is zero", func() {
		BeforeEach(func() {
			lines = []Line{textLine("COUPON", "0.00")}
		})

		It("should skip the line", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("the name is too short or purely numeric", func() {
		BeforeEach(func() {
			lines = []Line{
				textLine("AB", "3.99"),
				textLine("123", "4.99"),
			}
		})

		It("should reject it", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("the name words carry OCR confidences", func() {
		BeforeEach(func() {
			lines = []Line{{Words: []Word{
				{Text: "GREEK", Confidence: 0.9},
				{Text: "YOGURT", Confidence: 0.7},
				{Text: "5.49"},
			}}}
		})

		It("should average them", func() {
			Expect(items[0].Confidence).To(BeNumerically("~", 0.8, 1e-9))
		})
	})

	When("no lines are given", func() {
		BeforeEach(func() {
			lines = nil
		})

		It("should return nothing", func() {
			Expect(items).To(BeEmpty())
		})
	})
})
