package providers

import "strings"

// ProviderRef is one entry of an embedding or scoring failover chain,
// parsed from DOCQUERY_EMBED_PROVIDERS / DOCQUERY_SCORE_PROVIDERS.
type ProviderRef struct {
	Raw      string // entry as written, for logs
	Name     string // provider name: openai, ollama, mock
	KeyAlias string // optional credential alias after the colon
}

// ParseProviderList parses a pipe-separated failover chain such as
// "openai:prod | ollama | mock". List order is attempt order. An empty or
// blank list falls back to the keyless mock provider so ingestion and
// search work without any credentials configured.
func ParseProviderList(raw string) []ProviderRef {
	parts := strings.Split(raw, "|")
	out := make([]ProviderRef, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ref := ProviderRef{Raw: p}
		if strings.Contains(p, ":") {
			x := strings.SplitN(p, ":", 2)
			ref.Name = strings.TrimSpace(x[0])
			ref.KeyAlias = strings.TrimSpace(x[1])
		} else {
			ref.Name = p
		}
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = append(out, ProviderRef{Raw: "mock", Name: "mock"})
	}
	return out
}
