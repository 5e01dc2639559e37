package ocr

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestOCR(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OCR Suite")
}

type stubRecognizer struct {
	name   string
	lines  []TextLine
	closes atomic.Int32
}

func (s *stubRecognizer) Name() string { return s.name }

func (s *stubRecognizer) Recognize(ctx context.Context, png []byte) ([]TextLine, error) {
	return s.lines, nil
}

func (s *stubRecognizer) Close() error {
	s.closes.Add(1)
	return nil
}

var _ = Describe("ParseEngine", func() {
	It("accepts the known engine names", func() {
		e, err := ParseEngine("tesseract")
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(Equal(EngineTesseract))

		e, err = ParseEngine("OLLAMA")
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(Equal(EngineOllama))
	})

	It("defaults an empty name to auto", func() {
		e, err := ParseEngine("")
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(Equal(EngineAuto))
	})

	It("rejects unknown names", func() {
		_, err := ParseEngine("easyocr")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Engine.Resolve", func() {
	It("expands auto into the preference order", func() {
		Expect(EngineAuto.Resolve()).To(Equal([]Engine{EngineTesseract, EngineOllama}))
	})

	It("resolves concrete engines to themselves", func() {
		Expect(EngineOllama.Resolve()).To(Equal([]Engine{EngineOllama}))
	})
})

var _ = Describe("JoinLines", func() {
	It("orders lines by vertical position", func() {
		lines := []TextLine{
			{Text: "TOTAL 4.05", Top: 300},
			{Text: "Tomato Soup 1.65", Top: 100},
			{Text: "Milk 2.40", Top: 200},
		}
		Expect(JoinLines(lines)).To(Equal("Tomato Soup 1.65\nMilk 2.40\nTOTAL 4.05"))
	})

	It("keeps input order for equal positions", func() {
		lines := []TextLine{
			{Text: "first", Top: 0},
			{Text: "second", Top: 0},
		}
		Expect(JoinLines(lines)).To(Equal("first\nsecond"))
	})

	It("returns an empty string for no lines", func() {
		Expect(JoinLines(nil)).To(Equal(""))
	})
})

var _ = Describe("Registry", func() {
	var (
		registry  *Registry
		stub      *stubRecognizer
		built     atomic.Int32
		available bool
	)

	BeforeEach(func() {
		built.Store(0)
		stub = &stubRecognizer{name: "tesseract"}
		available = true
	})

	JustBeforeEach(func() {
		registry = NewRegistry(map[Engine]Capability{
			EngineTesseract: {
				Available: available,
				New: func() (Recognizer, error) {
					built.Add(1)
					return stub, nil
				},
			},
		})
	})

	When("the engine is available", func() {
		It("constructs the handle on first use", func() {
			rec, err := registry.Get(EngineTesseract)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Name()).To(Equal("tesseract"))
			Expect(built.Load()).To(Equal(int32(1)))
		})

		It("constructs exactly once under concurrent first use", func() {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					rec, err := registry.Get(EngineTesseract)
					Expect(err).NotTo(HaveOccurred())
					Expect(rec).NotTo(BeNil())
				}()
			}
			wg.Wait()
			Expect(built.Load()).To(Equal(int32(1)))
		})
	})

	When("the engine is not available", func() {
		BeforeEach(func() {
			available = false
		})

		It("returns ErrUnavailable without constructing", func() {
			_, err := registry.Get(EngineTesseract)
			Expect(err).To(MatchError(ErrUnavailable))
			Expect(built.Load()).To(Equal(int32(0)))
		})
	})

	When("the engine is not registered", func() {
		It("returns ErrUnavailable", func() {
			_, err := registry.Get(EngineOllama)
			Expect(err).To(MatchError(ErrUnavailable))
		})
	})

	Describe("Close", func() {
		It("closes constructed handles", func() {
			_, err := registry.Get(EngineTesseract)
			Expect(err).NotTo(HaveOccurred())

			Expect(registry.Close()).To(Succeed())
			Expect(stub.closes.Load()).To(Equal(int32(1)))
		})

		It("skips handles that were never constructed", func() {
			Expect(registry.Close()).To(Succeed())
			Expect(built.Load()).To(BeZero())
			Expect(stub.closes.Load()).To(BeZero())
		})

		It("is safe alongside concurrent first use", func() {
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				_, _ = registry.Get(EngineTesseract)
			}()
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				Expect(registry.Close()).To(Succeed())
			}()
			wg.Wait()
			Expect(built.Load()).To(BeNumerically("<=", 1))
		})
	})
})
