package ai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iron-dillo/cybersandbox/internal/ai"
)

type fakeProvider struct {
	vectors [][]float32
	err     error
	calls   int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Embed(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.vectors, nil
}

func TestNewProviderUnknownName(t *testing.T) {
	_, err := ai.NewProvider("does-not-exist", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported embedding provider")

	_, err = ai.NewProvider("", nil)
	require.Error(t, err)
}

func TestRegisteredProviders(t *testing.T) {
	// Both builtin providers register at init time.
	gemini, err := ai.NewProvider("Gemini", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)
	require.Equal(t, "gemini", gemini.Name())

	openai, err := ai.NewProvider("openai", map[string]interface{}{"base_url": "http://localhost:11434/v1"})
	require.NoError(t, err)
	require.Equal(t, "openai", openai.Name())

	_, err = ai.NewProvider("gemini", nil)
	require.Error(t, err)
}

func TestEmbedderVectorCountGuard(t *testing.T) {
	p := &fakeProvider{vectors: [][]float32{{1, 2}}}
	e := ai.NewEmbedder(p, "test-model")

	_, err := e.Embed(context.Background(), []string{"one", "two"}, ai.TaskTypeDocument)
	require.Error(t, err)
	require.Contains(t, err.Error(), "returned 1 vectors for 2 texts")
}

func TestEmbedderEmptyBatchSkipsProvider(t *testing.T) {
	p := &fakeProvider{}
	e := ai.NewEmbedder(p, "test-model")

	vectors, err := e.Embed(context.Background(), nil, ai.TaskTypeQuery)
	require.NoError(t, err)
	require.Empty(t, vectors)
	require.Zero(t, p.calls)
	require.Equal(t, "test-model", e.ModelName())
}
