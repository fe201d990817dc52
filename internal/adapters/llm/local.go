package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/codegen-api/config"
	"github.com/target/codegen-api/internal/core"
	"github.com/target/codegen-api/internal/domain/model"
)

const maxErrorBodyBytes = 4 * 1024

// LocalAdapterOptions configures the local endpoint adapter.
type LocalAdapterOptions struct {
	Config     config.LocalLLMConfig
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// LocalAdapter talks to an Ollama-compatible endpoint.
type LocalAdapter struct {
	cfg    config.LocalLLMConfig
	http   *http.Client
	logger *slog.Logger
}

type localGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type localGenerateResponse struct {
	Response string `json:"response"`
}

// NewLocalAdapter builds a LocalAdapter.
func NewLocalAdapter(opts LocalAdapterOptions) *LocalAdapter {
	cfg := opts.Config
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "codellama"
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LocalAdapter{
		cfg:    cfg,
		http:   hc,
		logger: logger.With("component", "local_llm_adapter"),
	}
}

// Name implements core.CodeGenerator.
func (a *LocalAdapter) Name() string { return "local-llm" }

// IsAvailable probes the tags endpoint. Any failure reads as unavailable.
func (a *LocalAdapter) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := a.http.Do(req)
	if err != nil {
		a.logger.DebugContext(ctx, "local llm probe failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// GenerateCode asks the local model for code and returns its reply as a single file.
func (a *LocalAdapter) GenerateCode(
	ctx context.Context,
	prompt string,
	target model.Target,
) ([]model.GeneratedFile, error) {
	body, err := json.Marshal(localGenerateRequest{
		Model:  a.cfg.Model,
		Prompt: fmt.Sprintf("Generate %s code for: %s", target, prompt),
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal local llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build local llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("Local LLM error: %d", resp.StatusCode) //nolint:staticcheck // surfaced verbatim as the job error
	}

	var out localGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode local llm response: %w", err)
	}

	return []model.GeneratedFile{{
		Path:     "generated." + string(target),
		Content:  out.Response,
		Language: string(target),
	}}, nil
}

var _ core.CodeGenerator = (*LocalAdapter)(nil)
