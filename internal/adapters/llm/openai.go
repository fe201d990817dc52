// Package llm provides the code generation adapters consumed by the worker.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/target/codegen-api/config"
	"github.com/target/codegen-api/internal/core"
	"github.com/target/codegen-api/internal/domain/model"
)

var (
	// ErrAPIKeyNotSet is returned when generation is attempted without a key.
	ErrAPIKeyNotSet = errors.New("openai api key not set")
	// ErrRateLimited is returned when the upstream API answers 429.
	ErrRateLimited = errors.New("openai rate limit exceeded")
	// ErrEmptyCompletion is returned when the API responds without choices.
	ErrEmptyCompletion = errors.New("no completion choices returned")
)

// OpenAIAdapterOptions configures the key-based adapter.
type OpenAIAdapterOptions struct {
	Config config.OpenAIConfig
	Logger *slog.Logger

	// HTTPClient overrides the transport used for live calls (tests).
	HTTPClient *http.Client
	// MaxRetries overrides the client retry budget; nil keeps the library default.
	MaxRetries *int
}

// OpenAIAdapter generates code with OpenAI chat completions.
//
// Unless live mode is enabled it answers from built-in templates, so a configured
// key is enough to exercise the full job pipeline offline.
type OpenAIAdapter struct {
	cfg    config.OpenAIConfig
	client openai.Client
	logger *slog.Logger
}

// NewOpenAIAdapter builds the adapter. A missing key is not an error; the adapter reports unavailable.
func NewOpenAIAdapter(opts OpenAIAdapterOptions) *OpenAIAdapter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.Config.APIKey)}
	if opts.Config.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.Config.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.MaxRetries != nil {
		reqOpts = append(reqOpts, option.WithMaxRetries(*opts.MaxRetries))
	}

	return &OpenAIAdapter{
		cfg:    opts.Config,
		client: openai.NewClient(reqOpts...),
		logger: logger.With("component", "openai_adapter"),
	}
}

// Name implements core.CodeGenerator.
func (a *OpenAIAdapter) Name() string { return "openai" }

// IsAvailable reports whether an API key is configured.
func (a *OpenAIAdapter) IsAvailable(context.Context) bool {
	return a.cfg.APIKey != ""
}

// GenerateCode returns generated files for prompt and target.
func (a *OpenAIAdapter) GenerateCode(
	ctx context.Context,
	prompt string,
	target model.Target,
) ([]model.GeneratedFile, error) {
	if !a.cfg.Live {
		return templateFiles(prompt, target), nil
	}
	if a.cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(a.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(target)),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(a.cfg.Temperature),
		MaxTokens:   openai.Int(a.cfg.MaxTokens),
	}

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if isRateLimitError(err) {
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("OpenAI API call failed: %w", err) //nolint:staticcheck // surfaced verbatim as the job error
	}
	if len(completion.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	files := parseCodeBlocks(completion.Choices[0].Message.Content, target)
	a.logger.DebugContext(ctx, "completion parsed",
		"model", completion.Model,
		"tokens", completion.Usage.TotalTokens,
		"files", len(files),
	)
	return files, nil
}

func systemPrompt(target model.Target) string {
	return fmt.Sprintf(
		"You are a code generator. Generate %s code based on the user's prompt. "+
			"Return code in a structured format with file paths and content.",
		target,
	)
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

var _ core.CodeGenerator = (*OpenAIAdapter)(nil)
