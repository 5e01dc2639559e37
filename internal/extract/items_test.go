package extract

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Extractor", func() {
	var (
		extractor *Extractor
		text      string
		items     []Item
	)

	BeforeEach(func() {
		extractor = NewExtractor()
	})

	Describe("ExtractPriced", func() {
		JustBeforeEach(func() {
			items = extractor.ExtractPriced(text)
		})

		When("an item name and its price are on separate lines", func() {
			BeforeEach(func() {
				text = strings.Join([]string{
					"Tomato Soup",
					"£1.65",
					"2 x Milk 2.40",
					"TOTAL 4.05",
				}, "\n")
			})

			It("joins the buffered name to the price line", func() {
				Expect(items).To(HaveLen(2))
				Expect(items[0].Name).To(Equal("Tomato Soup"))
				Expect(*items[0].Price).To(Equal(1.65))
			})

			It("parses the quantity prefix", func() {
				Expect(items[1].Name).To(Equal("Milk"))
				Expect(items[1].Quantity).To(Equal(2))
				Expect(*items[1].Price).To(Equal(2.40))
			})

			It("defaults quantity to one", func() {
				Expect(items[0].Quantity).To(Equal(1))
			})
		})

		When("a priced line contains a skip keyword", func() {
			BeforeEach(func() {
				text = strings.Join([]string{
					"Bread Rolls 1.20",
					"SUBTOTAL 1.20",
					"VAT 20% 0.80",
					"CASH 5.00",
					"CHANGE DUE 3.80",
				}, "\n")
			})

			It("keeps only the real item", func() {
				Expect(items).To(HaveLen(1))
				Expect(items[0].Name).To(Equal("Bread Rolls"))
			})
		})

		When("skip keywords appear in mixed case", func() {
			BeforeEach(func() {
				text = "Clubcard Savings 0.50\nOrange Juice 1.10"
			})

			It("matches them case-insensitively", func() {
				Expect(items).To(HaveLen(1))
				Expect(items[0].Name).To(Equal("Orange Juice"))
			})
		})

		When("a quantity token uses a multiplier", func() {
			BeforeEach(func() {
				text = "3 x Bread Rolls 1.20"
			})

			It("splits quantity from name", func() {
				Expect(items).To(HaveLen(1))
				Expect(items[0].Name).To(Equal("Bread Rolls"))
				Expect(items[0].Quantity).To(Equal(3))
				Expect(*items[0].Price).To(Equal(1.20))
			})
		})

		When("date and time lines sit between name and price", func() {
			BeforeEach(func() {
				text = strings.Join([]string{
					"Tomato Soup",
					"15/08/24",
					"10:23:45",
					"£1.65",
				}, "\n")
			})

			It("drops them without breaking the buffer", func() {
				Expect(items).To(HaveLen(1))
				Expect(items[0].Name).To(Equal("Tomato Soup"))
				Expect(*items[0].Price).To(Equal(1.65))
			})
		})

		When("buffered fragments never meet a price", func() {
			BeforeEach(func() {
				text = "Mystery Product\nAnother Fragment"
			})

			It("emits nothing", func() {
				Expect(items).To(BeEmpty())
			})
		})

		When("the price digits were split by OCR spacing", func() {
			BeforeEach(func() {
				text = "Baked Beans 1 . 30"
			})

			It("repairs the price", func() {
				Expect(items).To(HaveLen(1))
				Expect(*items[0].Price).To(Equal(1.30))
			})
		})

		When("a leading product code precedes the name", func() {
			BeforeEach(func() {
				text = "012345 Chocolate Bar 0.85"
			})

			It("strips the code", func() {
				Expect(items).To(HaveLen(1))
				Expect(items[0].Name).To(Equal("Chocolate Bar"))
			})
		})

		When("the text is empty", func() {
			BeforeEach(func() {
				text = ""
			})

			It("emits nothing", func() {
				Expect(items).To(BeEmpty())
			})
		})
	})

	Describe("ExtractUnpriced", func() {
		JustBeforeEach(func() {
			items = extractor.ExtractUnpriced(text)
		})

		When("no line carries a usable price", func() {
			BeforeEach(func() {
				text = strings.Join([]string{
					"BANANAS (F)",
					"WHOLEMEAL LOAF",
					"£1.65",
					"TOTAL",
					"THANK YOU FOR SHOPPING",
				}, "\n")
			})

			It("keeps product lines without prices", func() {
				Expect(items).To(HaveLen(2))
				Expect(items[0].Name).To(Equal("Bananas"))
				Expect(items[1].Name).To(Equal("Wholemeal Loaf"))
			})

			It("never attaches a price", func() {
				for _, item := range items {
					Expect(item.Price).To(BeNil())
				}
			})
		})

		When("a line is only a price", func() {
			BeforeEach(func() {
				text = "£3.20\n-0.50"
			})

			It("skips it", func() {
				Expect(items).To(BeEmpty())
			})
		})

		When("a line has a trailing price and category marker", func() {
			BeforeEach(func() {
				text = "CHEDDAR CHEESE (F) 2.50"
			})

			It("strips both", func() {
				Expect(items).To(HaveLen(1))
				Expect(items[0].Name).To(Equal("Cheddar Cheese"))
			})
		})

		When("a line parses down to digits and punctuation", func() {
			BeforeEach(func() {
				text = "**1234**"
			})

			It("skips it", func() {
				Expect(items).To(BeEmpty())
			})
		})

		When("a quantity prefix is present", func() {
			BeforeEach(func() {
				text = "2 x Yogurt"
			})

			It("splits quantity from name", func() {
				Expect(items).To(HaveLen(1))
				Expect(items[0].Name).To(Equal("Yogurt"))
				Expect(items[0].Quantity).To(Equal(2))
			})
		})

		When("run twice over the same text", func() {
			BeforeEach(func() {
				text = strings.Join([]string{
					"BANANAS (F)",
					"WHOLEMEAL LOAF",
					"2 x Yogurt",
					"TOTAL",
				}, "\n")
			})

			It("produces identical output", func() {
				Expect(extractor.ExtractUnpriced(text)).To(Equal(items))
			})
		})
	})
})
