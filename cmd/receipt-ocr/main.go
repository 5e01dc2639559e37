package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/esemsc-as4623/grapefruit/internal/cleanup"
	"github.com/esemsc-as4623/grapefruit/internal/history"
	"github.com/esemsc-as4623/grapefruit/internal/imageproc"
	"github.com/esemsc-as4623/grapefruit/internal/ocr"
	"github.com/esemsc-as4623/grapefruit/internal/pipeline"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-ocr")
	var (
		engineName   = fs.StringLong("engine", "auto", "OCR engine: 'auto', 'tesseract' or 'ollama'")
		useLLM       = fs.BoolLong("llm", "Clean extracted items with Gemini")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.0-flash", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g., llava, bakllava, qwen2-vl)")
		maxDimension = fs.IntLong("max-dimension", 2000, "Longest image side after initial resize")
		perspective  = fs.BoolLong("perspective", "Enable perspective correction for angled photos")
		deskew       = fs.BoolLong("deskew", "Enable rotation correction for skewed photos")
		sharpen      = fs.BoolLong("sharpen", "Enable unsharp masking for blurry photos")
		threshold    = fs.StringLong("threshold", "gaussian", "Adaptive threshold method: 'gaussian' or 'mean'")
		dbPath       = fs.StringLong("db", "", "History database file path (history disabled when empty)")
		archivePath  = fs.StringLong("archive", "", "Directory for archiving original images (disabled when empty)")
		verbose      = fs.BoolLong("verbose", "Enable debug logging")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_OCR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	files := fs.GetArgs()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: at least one image file is required")
		os.Exit(1)
	}

	engine, err := ocr.ParseEngine(*engineName)
	if err != nil {
		slog.Error("Invalid engine", "error", err)
		os.Exit(1)
	}

	thresholdMethod, err := imageproc.ParseThresholdMethod(*threshold)
	if err != nil {
		slog.Error("Invalid threshold method", "error", err)
		os.Exit(1)
	}

	cfg := imageproc.DefaultConfig()
	cfg.MaxDimension = *maxDimension
	cfg.EnablePerspective = *perspective
	cfg.EnableDeskew = *deskew
	cfg.EnableSharpen = *sharpen
	cfg.ThresholdMethod = thresholdMethod

	registry := ocr.DefaultRegistry(*ollamaURL, *ollamaModel)
	defer registry.Close()

	opts := []pipeline.Option{
		pipeline.WithConfig(cfg),
		pipeline.WithEngine(engine),
		pipeline.WithLogger(logger),
	}

	if *useLLM {
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required for --llm. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini cleaner...", "model", *geminiModel)
		cleaner, err := cleanup.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer cleaner.Close()
		opts = append(opts, pipeline.WithCleaner(cleaner))
	}

	var db history.DB
	if *dbPath != "" {
		slog.Info("Initializing history database...", "path", *dbPath)
		db, err = history.NewBoltDB(*dbPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	var archive history.Archive
	if *archivePath != "" {
		archive, err = history.NewLocalArchive(*archivePath)
		if err != nil {
			slog.Error("Failed to initialize archive", "error", err)
			os.Exit(1)
		}
	}

	processor := pipeline.New(registry, opts...)
	ctx := context.Background()

	batch := make([][]byte, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			slog.Error("Failed to read file", "file", file, "error", err)
			os.Exit(1)
		}
		batch = append(batch, data)
	}

	results, err := processor.ProcessBatch(ctx, batch)
	if err != nil {
		slog.Error("Batch processing failed", "error", err)
		os.Exit(1)
	}

	for i, res := range results {
		file := files[i]
		if res.Error != "" {
			slog.Error("Processing failed", "file", file, "error", res.Error)
			continue
		}
		slog.Info("Processed receipt", "file", file, "engine", res.Engine, "method", res.MethodUsed, "items", res.ItemCount)

		id := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(file))
		if archive != nil {
			if _, err := archive.Save(id, batch[i]); err != nil {
				slog.Error("Failed to archive image", "file", file, "error", err)
			}
		}
		if db != nil {
			record := &history.Record{
				ID:         id,
				Filename:   filepath.Base(file),
				Engine:     res.Engine,
				MethodUsed: res.MethodUsed,
				ItemCount:  res.ItemCount,
				Items:      res.Items,
				CreatedAt:  time.Now(),
			}
			if err := db.SaveRecord(record); err != nil {
				slog.Error("Failed to save record", "file", file, "error", err)
			}
		}
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		slog.Error("Failed to encode results", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
