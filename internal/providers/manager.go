package providers

import (
	"fmt"
	"strings"

	"docquery/internal/config"
)

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

type NamedScoreProvider struct {
	Ref      ProviderRef
	Provider ScoringProvider
}

type Manager struct {
	embedProviders []NamedEmbedProvider
	scoreProviders []NamedScoreProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	embedRefs := ParseProviderList(cfg.EmbedProviders)
	scoreRefs := ParseProviderList(cfg.ScoreProviders)

	m := &Manager{}
	for _, ref := range embedRefs {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: embed})
	}
	for _, ref := range scoreRefs {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		score, ok := p.(ScoringProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support relevance scoring", ref.Raw)
		}
		m.scoreProviders = append(m.scoreProviders, NamedScoreProvider{Ref: ref, Provider: score})
	}
	if len(m.embedProviders) == 0 {
		m.embedProviders = []NamedEmbedProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(cfg.EmbedDim)}}
	}
	if len(m.scoreProviders) == 0 {
		m.scoreProviders = []NamedScoreProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(cfg.EmbedDim)}}
	}
	return m, nil
}

func (m *Manager) EmbedProviderByIndex(i int) (EmbeddingProvider, ProviderRef) {
	if i < 0 || i >= len(m.embedProviders) {
		i = 0
	}
	return m.embedProviders[i].Provider, m.embedProviders[i].Ref
}

func (m *Manager) ScoreProviderByIndex(i int) (ScoringProvider, ProviderRef) {
	if i < 0 || i >= len(m.scoreProviders) {
		i = 0
	}
	return m.scoreProviders[i].Provider, m.scoreProviders[i].Ref
}

func (m *Manager) EmbedCount() int {
	return len(m.embedProviders)
}

func (m *Manager) ScoreCount() int {
	return len(m.scoreProviders)
}

// PreferredEmbedOrder lists provider indexes with real providers before the
// mock fallback.
func (m *Manager) PreferredEmbedOrder() []int {
	return preferredOrder(len(m.embedProviders), func(i int) string { return strings.ToLower(m.embedProviders[i].Ref.Name) })
}

func (m *Manager) PreferredScoreOrder() []int {
	return preferredOrder(len(m.scoreProviders), func(i int) string { return strings.ToLower(m.scoreProviders[i].Ref.Name) })
}

func preferredOrder(n int, nameAt func(i int) string) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaEmbeddingProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
