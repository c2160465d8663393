package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// OpenAIProvider uses standard OpenAI REST APIs when keys are configured.
// It serves both capabilities: embeddings and chat-based relevance scoring.
type OpenAIProvider struct {
	keyName string
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenAIProvider(keyName string) *OpenAIProvider {
	baseURL := strings.TrimSpace(os.Getenv("DOCQUERY_OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &OpenAIProvider{
		keyName: keyName,
		apiKey:  resolveOpenAIKey(keyName),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	model := "text-embedding-3-small"
	info := ProviderInfo{Name: "openai", Model: model, Key: o.keyName}
	if o.apiKey == "" {
		return nil, info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}
	payload, _ := json.Marshal(map[string]any{"model": model, "input": req.Inputs, "dimensions": req.Dimension})
	body, err := o.post(ctx, "/v1/embeddings", payload)
	if err != nil {
		return nil, info, err
	}
	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, info, fmt.Errorf("decode embedding response: %w", err)
	}
	out := make([][]float32, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		out = append(out, d.Embedding)
	}
	return out, info, nil
}

// Score asks a chat model to rate each candidate 0-10 for relevance to the
// query and return a bare JSON array, index-aligned with the candidates.
func (o *OpenAIProvider) Score(ctx context.Context, req ScoreRequest) ([]float64, ProviderInfo, error) {
	model := "gpt-4o-mini"
	info := ProviderInfo{Name: "openai", Model: model, Key: o.keyName}
	if o.apiKey == "" {
		return nil, info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}

	var prompt strings.Builder
	prompt.WriteString("Query: " + req.Query + "\n\nPassages to evaluate:\n")
	for i, cand := range req.Candidates {
		if len(cand) > 500 {
			cand = cand[:500]
		}
		fmt.Fprintf(&prompt, "Passage %d: %s\n", i, cand)
	}
	prompt.WriteString("\nScore each passage's relevance to the query and return only the JSON array of scores.")

	payload, _ := json.Marshal(map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": "You rate the relevance of text passages to a search query. " +
				"Rate each passage 0-10, where 10 directly answers the query and 0 is unrelated. " +
				"Respond with a JSON array of numbers in passage order, nothing else. Example: [8, 3, 9]"},
			{"role": "user", "content": prompt.String()},
		},
	})
	body, err := o.post(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return nil, info, err
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, info, fmt.Errorf("decode score response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, info, fmt.Errorf("openai returned empty choices")
	}
	scores, err := parseScoreArray(parsed.Choices[0].Message.Content, len(req.Candidates))
	if err != nil {
		return nil, info, err
	}
	return scores, info, nil
}

func (o *OpenAIProvider) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("openai error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// parseScoreArray extracts a JSON number array from model output, tolerating
// surrounding prose or code fences.
func parseScoreArray(content string, want int) ([]float64, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no score array in response: %q", content)
	}
	var scores []float64
	if err := json.Unmarshal([]byte(content[start:end+1]), &scores); err != nil {
		return nil, fmt.Errorf("parse score array: %w", err)
	}
	if len(scores) != want {
		return nil, fmt.Errorf("score count mismatch: got %d want %d", len(scores), want)
	}
	return scores, nil
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		k := os.Getenv("DOCQUERY_OPENAI_KEY_" + strings.ToUpper(alias))
		if k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}
