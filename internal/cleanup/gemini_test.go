package cleanup

import (
	"github.com/google/generative-ai-go/genai"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("responseText", func() {
	var (
		resp *genai.GenerateContentResponse
		text string
		err  error
	)

	JustBeforeEach(func() {
		text, err = responseText(resp)
	})

	When("the response has text parts", func() {
		BeforeEach(func() {
			resp = &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{
						Parts: []genai.Part{genai.Text(`[{"name": "Milk", `), genai.Text(`"quantity": 1}]`)},
					},
				}},
			}
		})

		It("concatenates them", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(`[{"name": "Milk", "quantity": 1}]`))
		})
	})

	When("there are no candidates", func() {
		BeforeEach(func() {
			resp = &genai.GenerateContentResponse{}
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the candidate has nil content", func() {
		BeforeEach(func() {
			resp = &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{Content: nil}},
			}
		})

		It("returns an error instead of panicking", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the content has no parts", func() {
		BeforeEach(func() {
			resp = &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{Content: &genai.Content{}}},
			}
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})
