package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/codegen-api/internal/domain/model"
	"github.com/target/codegen-api/internal/mocks"
	"go.uber.org/mock/gomock"
)

func TestNewProviderService_Validation(t *testing.T) {
	_, err := NewProviderService(ProviderServiceOptions{})
	require.Error(t, err)

	_, err = NewProviderService(ProviderServiceOptions{Providers: []ProviderRegistration{{ID: "x"}}})
	require.Error(t, err)
}

func TestProviderService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	openai := mocks.NewMockCodeGenerator(ctrl)
	local := mocks.NewMockCodeGenerator(ctrl)

	openai.EXPECT().IsAvailable(gomock.Any()).Return(true)
	local.EXPECT().IsAvailable(gomock.Any()).Return(false)

	svc, err := NewProviderService(ProviderServiceOptions{
		Providers: []ProviderRegistration{OpenAIProvider(openai), LocalProvider(local)},
	})
	require.NoError(t, err)

	got := svc.List(context.Background())
	require.Len(t, got.Providers, 2)

	assert.Equal(t, model.Provider{
		ID:        "openai",
		Name:      "OpenAI",
		Type:      model.ProviderTypeOpenAI,
		Available: true,
		Models:    []string{"gpt-4", "gpt-3.5-turbo", "gpt-4-turbo"},
	}, got.Providers[0])
	assert.Equal(t, model.Provider{
		ID:        "local-llm",
		Name:      "Local LLM",
		Type:      model.ProviderTypeLocal,
		Available: false,
		Models:    []string{"llama2", "codellama", "mistral"},
	}, got.Providers[1])
}

func TestProviderService_List_ProbeSeesDeadline(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockCodeGenerator(ctrl)

	gen.EXPECT().IsAvailable(gomock.Any()).DoAndReturn(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})

	svc, err := NewProviderService(ProviderServiceOptions{Providers: []ProviderRegistration{LocalProvider(gen)}})
	require.NoError(t, err)

	got := svc.List(context.Background())
	assert.True(t, got.Providers[0].Available)
}
