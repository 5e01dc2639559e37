// Package cleanup turns raw OCR transcriptions into clean item lists with the
// help of a language model. It is an optional refinement stage; the pipeline
// falls back to rule-based extraction when no cleaner is configured or the
// cleaner fails.
package cleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/esemsc-as4623/grapefruit/internal/extract"
)

// Cleaner rewrites raw OCR text into purchased items, dropping boilerplate
// and merging fragments the OCR engine split across lines.
type Cleaner interface {
	CleanItems(ctx context.Context, rawText string) ([]extract.Item, error)
	Close() error
}

type rawItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// parseItemsJSON parses a model response into items. Model output often
// arrives wrapped in markdown code fences or with prose around the JSON, so
// the array is located by its brackets before unmarshaling.
func parseItemsJSON(text string) ([]extract.Item, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "[")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}
	endIdx := strings.LastIndex(text, "]")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON array in response")
	}
	text = text[startIdx : endIdx+1]

	var raw []rawItem
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	items := make([]extract.Item, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		qty := r.Quantity
		if qty < 1 {
			qty = 1
		}
		items = append(items, extract.Item{
			Name:     extract.TitleCase(name),
			Quantity: qty,
		})
	}
	return items, nil
}
