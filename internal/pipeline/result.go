package pipeline

import "github.com/esemsc-as4623/grapefruit/internal/extract"

// Extraction methods, in order of preference. The result records which one
// actually produced the items so callers can judge how much to trust them.
const (
	MethodLLMCleanup    = "llm-cleanup"
	MethodPricedLines   = "priced-lines"
	MethodUnpricedLines = "unpriced-lines"
)

// Result is the outcome of processing one receipt image. Items is always
// non-nil; a failed run carries an empty list plus an Error message so batch
// output stays uniform.
type Result struct {
	Items      []extract.Item `json:"items"`
	RawText    string         `json:"raw_text"`
	MethodUsed string         `json:"method_used,omitempty"`
	Engine     string         `json:"engine,omitempty"`
	ItemCount  int            `json:"item_count"`
	Error      string         `json:"error,omitempty"`
}
