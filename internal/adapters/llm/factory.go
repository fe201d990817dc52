package llm

import (
	"log/slog"
	"net/http"

	"github.com/target/codegen-api/config"
	"github.com/target/codegen-api/internal/core"
)

// Adapters holds both adapter variants. Provider listings probe both;
// the worker uses Active.
type Adapters struct {
	OpenAI *OpenAIAdapter
	Local  *LocalAdapter
	Active core.CodeGenerator
}

// NewAdapters builds both adapters from cfg and selects the active one.
func NewAdapters(cfg config.LLMConfig, logger *slog.Logger, hc *http.Client) Adapters {
	a := Adapters{
		OpenAI: NewOpenAIAdapter(OpenAIAdapterOptions{Config: cfg.OpenAI, Logger: logger, HTTPClient: hc}),
		Local:  NewLocalAdapter(LocalAdapterOptions{Config: cfg.Local, Logger: logger, HTTPClient: hc}),
	}
	if cfg.Resolve() == config.LLMProviderOpenAI {
		a.Active = a.OpenAI
	} else {
		a.Active = a.Local
	}
	return a
}
