package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Line confidences below this are treated as noise and dropped.
const tesseractMinConfidence = 0.3

// Tesseract adapts a gosseract client to the Recognizer contract. The client
// is not safe for concurrent use, so inference calls are serialized; the
// handle itself is constructed once and shared for the process lifetime via
// the Registry.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract constructs the shared Tesseract handle. PSM 4 (single column
// of variable-size text) matches receipt layout.
func NewTesseract() (*Tesseract, error) {
	client := gosseract.NewClient()
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_COLUMN); err != nil {
		client.Close()
		return nil, fmt.Errorf("configuring tesseract: %w", err)
	}
	return &Tesseract{client: client}, nil
}

func (t *Tesseract) Name() string { return EngineTesseract.String() }

// Recognize extracts text lines with their bounding-box positions, filtering
// out low-confidence lines. When line geometry is unavailable it falls back
// to plain text in input order.
func (t *Tesseract) Recognize(ctx context.Context, png []byte) ([]TextLine, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.client.SetImageFromBytes(png); err != nil {
		return nil, fmt.Errorf("setting image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err == nil && len(boxes) > 0 {
		lines := make([]TextLine, 0, len(boxes))
		for _, b := range boxes {
			text := strings.TrimSpace(b.Word)
			conf := b.Confidence / 100.0
			if text == "" || conf < tesseractMinConfidence {
				continue
			}
			lines = append(lines, TextLine{Text: text, Top: float64(b.Box.Min.Y), Confidence: conf})
		}
		if len(lines) > 0 {
			sort.SliceStable(lines, func(i, j int) bool { return lines[i].Top < lines[j].Top })
			return lines, nil
		}
	}

	text, err := t.client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}
	lines := linesFromText(text)
	if len(lines) == 0 {
		return nil, ErrNoOutput
	}
	return lines, nil
}

func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
