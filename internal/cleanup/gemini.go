package cleanup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/esemsc-as4623/grapefruit/internal/extract"
)

const cleanItemsPrompt = `You are given raw OCR text from a UK supermarket receipt.
Extract ONLY the purchased product names.

Rules:
- EXCLUDE store names, addresses, phone numbers and web addresses
- EXCLUDE totals, subtotals, change, cash, card and payment lines
- EXCLUDE VAT numbers, loyalty-card and promotion lines
- EXCLUDE prices; do not include any price in the output
- MERGE product names the OCR split across multiple lines into one name
- FIX obvious OCR letter confusions in product names (0/O, 1/I, 5/S)
- If a product line starts with a count such as "2 x", report it as the quantity

Return ONLY a JSON array, no commentary:
[{"name": "Product Name", "quantity": 1}]`

// Gemini cleans OCR text with a Google Gemini model.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini-backed Cleaner.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// CleanItems sends the raw transcription to the model and parses the returned
// item list.
func (g *Gemini) CleanItems(ctx context.Context, rawText string) ([]extract.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prompt := cleanItemsPrompt + "\n\nOCR TEXT:\n" + rawText

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	items, err := parseItemsJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing cleaned items: %w", err)
	}
	return items, nil
}

// responseText concatenates the text parts of the first candidate. Candidates
// with nil content happen when the model blocks the response, so the content
// is checked before the parts are walked.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var b strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
