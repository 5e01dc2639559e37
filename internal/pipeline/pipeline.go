// Package pipeline orchestrates the full receipt run: decode, normalize,
// recognize, extract. Image failures are fatal per receipt; everything after
// recognition degrades through fallbacks instead of failing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/esemsc-as4623/grapefruit/internal/cleanup"
	"github.com/esemsc-as4623/grapefruit/internal/extract"
	"github.com/esemsc-as4623/grapefruit/internal/imageproc"
	"github.com/esemsc-as4623/grapefruit/internal/ocr"
)

// MaxBatchSize bounds a single batch request.
const MaxBatchSize = 10

// ErrBatchTooLarge is returned before any image in an oversized batch is
// processed.
var ErrBatchTooLarge = errors.New("batch exceeds maximum size")

// Processor runs receipts through the pipeline. Construct with New; the zero
// value is not usable.
type Processor struct {
	cfg       imageproc.Config
	registry  *ocr.Registry
	engine    ocr.Engine
	cleaner   cleanup.Cleaner
	extractor *extract.Extractor
	logger    *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithCleaner enables LLM cleanup as the preferred extraction method.
func WithCleaner(c cleanup.Cleaner) Option {
	return func(p *Processor) { p.cleaner = c }
}

// WithEngine pins OCR to a specific engine instead of auto fallback.
func WithEngine(e ocr.Engine) Option {
	return func(p *Processor) { p.engine = e }
}

// WithConfig overrides the image preprocessing configuration.
func WithConfig(cfg imageproc.Config) Option {
	return func(p *Processor) { p.cfg = cfg }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// New creates a Processor backed by the given engine registry.
func New(registry *ocr.Registry, opts ...Option) *Processor {
	p := &Processor{
		cfg:       imageproc.DefaultConfig(),
		registry:  registry,
		engine:    ocr.EngineAuto,
		extractor: extract.NewExtractor(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one receipt image through the pipeline. It always returns a
// Result; failures are reported in Result.Error rather than as a Go error so
// batch processing can continue past bad images.
func (p *Processor) Process(ctx context.Context, data []byte) *Result {
	res := &Result{Items: []extract.Item{}}

	img, err := imageproc.Decode(data)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer img.Close()

	processed := imageproc.Preprocess(img, p.cfg)
	defer processed.Close()

	png, err := imageproc.EncodePNG(processed)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	rawText, engineName, err := p.recognize(ctx, png)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.RawText = rawText
	res.Engine = engineName

	items, method := p.extractItems(ctx, rawText)
	if items == nil {
		items = []extract.Item{}
	}
	res.Items = items
	res.MethodUsed = method
	res.ItemCount = len(items)
	return res
}

// ProcessBatch processes up to MaxBatchSize images sequentially. The size
// check runs before any work so an oversized batch costs nothing.
func (p *Processor) ProcessBatch(ctx context.Context, batch [][]byte) ([]*Result, error) {
	if len(batch) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d images (max %d)", ErrBatchTooLarge, len(batch), MaxBatchSize)
	}

	results := make([]*Result, 0, len(batch))
	for i, data := range batch {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		p.logger.Debug("processing batch image", "index", i)
		results = append(results, p.Process(ctx, data))
	}
	return results, nil
}

// recognize tries the resolved engines in preference order until one produces
// text. Every attempt's failure is retained so a total miss reports what went
// wrong in each engine, not just the last.
func (p *Processor) recognize(ctx context.Context, png []byte) (string, string, error) {
	var attemptErrs []error

	for _, e := range p.engine.Resolve() {
		rec, err := p.registry.Get(e)
		if err != nil {
			p.logger.Debug("ocr engine skipped", "engine", e.String(), "error", err)
			attemptErrs = append(attemptErrs, err)
			continue
		}

		lines, err := rec.Recognize(ctx, png)
		if err != nil {
			p.logger.Debug("ocr engine failed", "engine", e.String(), "error", err)
			attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", e, err))
			continue
		}

		text := ocr.JoinLines(lines)
		if text == "" {
			attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", e, ocr.ErrNoOutput))
			continue
		}
		return text, rec.Name(), nil
	}

	return "", "", fmt.Errorf("all ocr engines failed: %w", errors.Join(attemptErrs...))
}

// extractItems picks the best available extraction method. LLM cleanup is
// preferred but soft-fails to the rule-based strategies; the priced-line
// strategy wins over the unpriced fallback when it finds anything at all.
func (p *Processor) extractItems(ctx context.Context, rawText string) ([]extract.Item, string) {
	if p.cleaner != nil {
		items, err := p.cleaner.CleanItems(ctx, rawText)
		if err == nil && len(items) > 0 {
			return items, MethodLLMCleanup
		}
		if err != nil {
			p.logger.Debug("llm cleanup failed, falling back", "error", err)
		}
	}

	if items := p.extractor.ExtractPriced(rawText); len(items) > 0 {
		return items, MethodPricedLines
	}

	return p.extractor.ExtractUnpriced(rawText), MethodUnpricedLines
}
