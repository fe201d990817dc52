package model

// ProviderType identifies the adapter family behind a provider.
type ProviderType string

const (
	ProviderTypeOpenAI ProviderType = "openai"
	ProviderTypeLocal  ProviderType = "local"
)

// Provider describes an LLM backend and whether it can serve requests right now.
type Provider struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      ProviderType `json:"type"`
	Available bool         `json:"available"`
	Models    []string     `json:"models"`
}

// ListProvidersResponse is returned by GET /providers.
type ListProvidersResponse struct {
	Providers []Provider `json:"providers"`
}
