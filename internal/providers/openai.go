package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAICompatible implements Provider for OpenAI-compatible chat completion
// APIs (OpenAI, Groq, OpenRouter, DeepSeek, VLLM, etc.). Every call carries a
// hard wall-clock timeout; a call that exceeds it is cancelled and treated as
// a failure.
type OpenAICompatible struct {
	apiBase     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

// NewOpenAICompatible creates a backend adapter. baseURL may be given with or
// without the trailing "/v1"; the adapter always calls /v1/chat/completions.
func NewOpenAICompatible(baseURL, apiKey, model string, temperature float64, timeout time.Duration) *OpenAICompatible {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAICompatible{
		apiBase:     base,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: timeout},
	}
}

func (p *OpenAICompatible) Name() string { return "openai-compatible" }

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *OpenAICompatible) Chat(ctx context.Context, system string, history []Message, userText string) (string, error) {
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: "system", Content: system})
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: "user", Content: userText})

	body := map[string]interface{}{
		"model":       p.model,
		"messages":    msgs,
		"temperature": p.temperature,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.apiBase+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("llm: HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var cc chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}

	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("llm: response has no choices")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("llm: response missing choices[0].message.content")
	}
	return content, nil
}
