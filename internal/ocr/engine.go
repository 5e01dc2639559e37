package ocr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Engine identifies a supported OCR backend. Engine selection is a closed set
// rather than free-form strings so that an unsupported name fails at parse
// time, not deep inside the pipeline.
type Engine int

const (
	// EngineAuto tries the supported engines in a fixed preference order.
	EngineAuto Engine = iota
	EngineTesseract
	EngineOllama
)

func (e Engine) String() string {
	switch e {
	case EngineAuto:
		return "auto"
	case EngineTesseract:
		return "tesseract"
	case EngineOllama:
		return "ollama"
	}
	return fmt.Sprintf("engine(%d)", int(e))
}

// ParseEngine converts a user-supplied engine name.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return EngineAuto, nil
	case "tesseract":
		return EngineTesseract, nil
	case "ollama":
		return EngineOllama, nil
	}
	return EngineAuto, fmt.Errorf("unknown ocr engine %q (valid: auto, tesseract, ollama)", s)
}

// Resolve expands EngineAuto into the preference order; concrete engines
// resolve to themselves.
func (e Engine) Resolve() []Engine {
	if e == EngineAuto {
		return []Engine{EngineTesseract, EngineOllama}
	}
	return []Engine{e}
}

// ErrNoOutput is the failure marker an adapter returns when it ran but could
// not produce any text. The orchestrator advances to the next engine.
var ErrNoOutput = errors.New("ocr produced no output")

// ErrUnavailable indicates the engine is not installed or not reachable.
var ErrUnavailable = errors.New("ocr engine unavailable")

// TextLine is one recognized line of text. Top is the vertical position of
// the line's bounding box when the engine reports geometry, otherwise the
// input order index. Confidence is in [0,1]; engines that report none use 1.
type TextLine struct {
	Text       string
	Top        float64
	Confidence float64
}

// Recognizer maps a normalized PNG image to ordered text lines. Adapters
// apply their documented confidence filtering before returning.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, png []byte) ([]TextLine, error)
	Close() error
}

// JoinLines sorts lines by vertical position (stable, so engines without
// geometry keep input order) and joins them with newlines.
func JoinLines(lines []TextLine) string {
	sorted := append([]TextLine(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Top < sorted[j].Top })

	texts := make([]string, 0, len(sorted))
	for _, l := range sorted {
		texts = append(texts, l.Text)
	}
	return strings.Join(texts, "\n")
}

// linesFromText splits plain engine output into TextLines with input-order
// positions.
func linesFromText(text string) []TextLine {
	var lines []TextLine
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lines = append(lines, TextLine{Text: line, Top: float64(i), Confidence: 1})
	}
	return lines
}
