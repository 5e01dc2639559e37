package cleanup

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/esemsc-as4623/grapefruit/internal/extract"
)

func TestCleanup(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cleanup Suite")
}

var _ = Describe("parseItemsJSON", func() {
	var (
		jsonInput string
		items     []extract.Item
		err       error
	)

	JustBeforeEach(func() {
		items, err = parseItemsJSON(jsonInput)
	})

	When("parsing a plain JSON array", func() {
		BeforeEach(func() {
			jsonInput = `[{"name": "Tomato Soup", "quantity": 1}, {"name": "Milk", "quantity": 2}]`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse every item", func() {
			Expect(items).To(HaveLen(2))
			Expect(items[0].Name).To(Equal("Tomato Soup"))
			Expect(items[1].Name).To(Equal("Milk"))
			Expect(items[1].Quantity).To(Equal(2))
		})

		It("should leave prices unset", func() {
			for _, item := range items {
				Expect(item.Price).To(BeNil())
			}
		})
	})

	When("the array is wrapped in markdown code blocks", func() {
		BeforeEach(func() {
			jsonInput = "```json\n[{\"name\": \"Bread\", \"quantity\": 1}]\n```"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse the item", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("Bread"))
		})
	})

	When("the model added prose around the array", func() {
		BeforeEach(func() {
			jsonInput = `Here are the items: [{"name": "Eggs", "quantity": 1}] Hope that helps!`
		})

		It("should extract the array anyway", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("Eggs"))
		})
	})

	When("an item has a missing or invalid quantity", func() {
		BeforeEach(func() {
			jsonInput = `[{"name": "Butter"}, {"name": "Jam", "quantity": 0}]`
		})

		It("defaults quantity to one", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
			Expect(items[0].Quantity).To(Equal(1))
			Expect(items[1].Quantity).To(Equal(1))
		})
	})

	When("an item has an empty name", func() {
		BeforeEach(func() {
			jsonInput = `[{"name": "  ", "quantity": 1}, {"name": "Tea", "quantity": 1}]`
		})

		It("drops it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("Tea"))
		})
	})

	When("item names are lowercase", func() {
		BeforeEach(func() {
			jsonInput = `[{"name": "tomato soup", "quantity": 1}]`
		})

		It("normalizes them to title case", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(items[0].Name).To(Equal("Tomato Soup"))
		})
	})

	When("the response contains no array", func() {
		BeforeEach(func() {
			jsonInput = `I could not read the receipt.`
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the array is malformed", func() {
		BeforeEach(func() {
			jsonInput = `[{"name": "Broken"`
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})
