package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const transcribePrompt = `You are transcribing a photographed paper receipt.
Read every line of text in the image from top to bottom and return it exactly
as printed, one receipt line per output line. Do not summarize, translate,
reorder or omit lines, and do not add any commentary before or after the
transcription.`

// Ollama performs OCR through a locally hosted vision model. It has no
// per-line confidence; output is accepted wholesale or rejected with
// ErrNoOutput.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama-backed recognizer. Vision models such as llava,
// bakllava or qwen2-vl work; llava is the default.
func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llava"
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 120 * time.Second, // vision models can be slow
		},
	}
}

func (o *Ollama) Name() string { return EngineOllama.String() }

// Ping reports whether the Ollama server is reachable.
func (o *Ollama) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama returned status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

type ollamaGenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Recognize sends the image to /api/generate with a transcription prompt and
// splits the answer into lines in reading order.
func (o *Ollama) Recognize(ctx context.Context, png []byte) ([]TextLine, error) {
	reqBody := ollamaGenerateRequest{
		Model:  o.model,
		Prompt: transcribePrompt,
		Images: []string{base64.StdEncoding.EncodeToString(png)},
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	lines := linesFromText(strings.TrimSpace(genResp.Response))
	if len(lines) == 0 {
		return nil, ErrNoOutput
	}
	return lines, nil
}

// Close closes the recognizer (no-op for the HTTP client).
func (o *Ollama) Close() error {
	return nil
}
