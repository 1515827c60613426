package textract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	receiptocr "github.com/fiscflow/receipt-ocr"
	"github.com/fiscflow/receipt-ocr/receipt"
)

type fakeExpenseAPI struct {
	out    *textract.AnalyzeExpenseOutput
	err    error
	inputs []*textract.AnalyzeExpenseInput
}

func (f *fakeExpenseAPI) AnalyzeExpense(ctx context.Context, params *textract.AnalyzeExpenseInput, optFns ...func(*textract.Options)) (*textract.AnalyzeExpenseOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func pngBytes() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)))).NotTo(HaveOccurred())
	return buf.Bytes()
}

var _ = Describe("Extract", func() {
	var (
		api         *fakeExpenseAPI
		provider    *Provider
		data        []byte
		contentType string
		rec         *receipt.Receipt
		err         error
	)

	BeforeEach(func() {
		api = &fakeExpenseAPI{
			out: &textract.AnalyzeExpenseOutput{
				ExpenseDocuments: []types.ExpenseDocument{{
					SummaryFields: []types.ExpenseField{
						expenseField("VENDOR_NAME", "SAFEWAY", 99),
					},
				}},
			},
		}
		provider = &Provider{client: api}
		data = pngBytes()
		contentType = "image/png"
	})

	JustBeforeEach(func() {
		rec, err = provider.Extract(context.Background(), receiptocr.Input{Data: data, ContentType: contentType})
	})

	It("should map the expense document", func() {
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.MerchantName).To(Equal("SAFEWAY"))
	})

	It("should send the normalized image bytes", func() {
		Expect(api.inputs).To(HaveLen(1))
		Expect(api.inputs[0].Document.Bytes).To(Equal(data))
	})

	When("the API call fails", func() {
		var apiErr error

		BeforeEach(func() {
			apiErr = errors.New("throttled")
			api.err = apiErr
		})

		It("should wrap the error", func() {
			Expect(err).To(MatchError(apiErr))
			Expect(err.Error()).To(ContainSubstring("analyzing expense"))
		})
	})

	When("no expense document is detected", func() {
		BeforeEach(func() {
			api.out = &textract.AnalyzeExpenseOutput{}
		})

		It("should error", func() {
			Expect(err).To(MatchError("no expense document detected"))
		})
	})

	When("the image cannot be normalized", func() {
		BeforeEach(func() {
			data = []byte("not an image")
			contentType = ""
		})

		It("should error before calling the API", func() {
			Expect(err).To(MatchError(ContainSubstring("normalizing image")))
			Expect(api.inputs).To(BeEmpty())
		})
	})
})

var _ = Describe("Close", func() {
	It("should not error", func() {
		provider := &Provider{client: &fakeExpenseAPI{}}
		Expect(provider.Close()).NotTo(HaveOccurred())
	})
})

var _ = Describe("blockText", func() {
	It("should join LINE blocks and skip the rest", func() {
		blocks := []types.Block{
			lineBlock("WALGREENS"),
			{BlockType: types.BlockTypeWord, Text: aws.String("skipped")},
			lineBlock("TOTAL 5.00"),
		}
		Expect(blockText(blocks)).To(Equal("WALGREENS\nTOTAL 5.00"))
	})
})
