package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/codegen-api/config"
	"github.com/target/codegen-api/internal/domain/model"
)

func newTestCommandContext(t *testing.T, in string) (*commandContext, *bytes.Buffer) {
	t.Helper()
	cfg := config.AppConfig{Services: "worker"}
	cfg.Sanitize()

	out := &bytes.Buffer{}
	return &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.DiscardHandler),
		Config: cfg,
		Out:    out,
		In:     strings.NewReader(in),
	}, out
}

func TestPrintUsageListsCommandsSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	require.Contains(t, out, "Usage: codegen-admin <command> [flags]")
	events := strings.Index(out, "events")
	generate := strings.Index(out, "generate")
	providers := strings.Index(out, "providers")
	validate := strings.Index(out, "validate")
	assert.True(t, events < generate && generate < providers && providers < validate, out)
}

func TestParseGenerateFlags(t *testing.T) {
	opts, err := parseGenerateFlags([]string{"--prompt", "  a todo list  ", "--target", "FRONTEND"})
	require.NoError(t, err)
	assert.Equal(t, "a todo list", opts.Prompt)
	assert.Equal(t, model.TargetFrontend, opts.Target)
	assert.Equal(t, adminClientID, opts.ClientID)

	_, err = parseGenerateFlags([]string{"--target", "backend"})
	require.ErrorContains(t, err, "--prompt is required")

	_, err = parseGenerateFlags([]string{"--prompt", "x", "--target", "mobile"})
	require.ErrorContains(t, err, "invalid --target")

	_, err = parseGenerateFlags([]string{"--prompt", "x", "--timeout", "-1s"})
	require.Error(t, err)
}

func TestParseEventsFlags(t *testing.T) {
	opts, err := parseEventsFlags(nil, "code-generated")
	require.NoError(t, err)
	assert.Equal(t, "code-generated", opts.Channel)

	_, err = parseEventsFlags([]string{"--channel", " "}, "code-generated")
	require.Error(t, err)

	_, err = parseEventsFlags([]string{"--count", "-2"}, "code-generated")
	require.Error(t, err)
}

func TestRenderProvidersTableMarksActive(t *testing.T) {
	var buf bytes.Buffer
	err := renderProvidersTable(&buf, []model.Provider{
		{ID: "openai", Name: "OpenAI", Type: model.ProviderTypeOpenAI, Models: []string{"gpt-4", "gpt-4-turbo"}},
		{ID: "local-llm", Name: "Local LLM", Type: model.ProviderTypeLocal, Available: true, Models: []string{"codellama"}},
	}, "local-llm")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "AVAILABLE")
	assert.Contains(t, lines[1], "gpt-4, gpt-4-turbo")
	assert.NotContains(t, lines[1], "*")
	assert.Contains(t, lines[2], "true")
	assert.Contains(t, lines[2], "*")
}

func TestRunValidate(t *testing.T) {
	t.Run("clean code passes", func(t *testing.T) {
		cmdCtx, out := newTestCommandContext(t, "// adds numbers\nconst add = (a: number, b: number): number => a + b;\n")
		require.NoError(t, runValidate(cmdCtx, nil))
		assert.Contains(t, out.String(), "Result: valid")
	})

	t.Run("missing react import fails", func(t *testing.T) {
		cmdCtx, out := newTestCommandContext(t, "const App = () => React.createElement('div');\n")
		err := runValidate(cmdCtx, []string{"--language", "javascript"})
		require.ErrorIs(t, err, errValidationFailed)
		assert.Contains(t, out.String(), "Result: invalid")
		assert.Contains(t, out.String(), "Missing React import")
	})

	t.Run("json output", func(t *testing.T) {
		cmdCtx, out := newTestCommandContext(t, "SELECT 1")
		require.NoError(t, runValidate(cmdCtx, []string{"--language", "sql", "--json"}))

		var resp model.ValidateCodeResponse
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
		assert.True(t, resp.Valid)
		assert.Contains(t, resp.Suggestions, "Add comments to improve code readability")
	})
}

func TestRunGenerateInProcess(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/generate":
			_ = json.NewEncoder(w).Encode(map[string]string{"response": "SELECT 1;"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ollama.Close)

	cmdCtx, out := newTestCommandContext(t, "")
	cmdCtx.Config.LLM.Provider = config.LLMProviderLocal
	cmdCtx.Config.LLM.Local.BaseURL = ollama.URL
	cmdCtx.Config.Worker.IdleInterval = 20 * time.Millisecond

	require.NoError(t, runGenerate(cmdCtx, []string{"--prompt", "select one", "--target", "sql", "--json"}))

	var resp model.GenerateResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "generated.sql", resp.Files[0].Path)
	assert.Equal(t, "SELECT 1;", resp.Files[0].Content)
	assert.Contains(t, resp.GitDiff, "diff --git a/generated.sql b/generated.sql")
}

func TestRunGenerateReportsUnavailableProvider(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	base := down.URL
	down.Close()

	cmdCtx, _ := newTestCommandContext(t, "")
	cmdCtx.Config.LLM.Provider = config.LLMProviderLocal
	cmdCtx.Config.LLM.Local.BaseURL = base
	cmdCtx.Config.LLM.Local.ProbeTimeout = 200 * time.Millisecond

	err := runGenerate(cmdCtx, []string{"--prompt", "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM service is not available")
}

func TestEventPrinterStopsAtLimit(t *testing.T) {
	var buf bytes.Buffer
	stopped := 0
	p := &eventPrinter{out: &buf, limit: 2, stop: func() { stopped++ }}

	ts := time.Date(2025, time.March, 14, 15, 9, 26, 0, time.UTC)
	p.print(model.CodeGeneratedEvent{ID: "job-1", Prompt: "a", Target: model.TargetSQL, Timestamp: ts, Success: true})
	assert.Zero(t, stopped)
	p.print(model.CodeGeneratedEvent{ID: "job-2", Prompt: "b", Target: model.TargetInfra, Timestamp: ts, Error: "boom"})
	assert.Equal(t, 1, stopped)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "2025-03-14T15:09:26Z  ok"))
	assert.Contains(t, lines[1], "failed")
	assert.Contains(t, lines[1], "error=boom")
}

func TestTruncatePrompt(t *testing.T) {
	assert.Equal(t, "a b c", truncatePrompt("a\n b\t c", 10))
	assert.Equal(t, "abcd…", truncatePrompt("abcdefgh", 5))
}

func TestHasRedisConfig(t *testing.T) {
	assert.False(t, hasRedisConfig(nil))
	assert.False(t, hasRedisConfig(&config.RedisConfig{}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{URI: "localhost:6379"}))
	assert.False(t, hasRedisConfig(&config.RedisConfig{UseSentinel: true}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{UseCluster: true, ClusterNodes: []string{"n1:7000"}}))
}
