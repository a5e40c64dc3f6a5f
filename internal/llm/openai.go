package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ancillary-hub/ancillary/internal/observability"
)

type OpenAIConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// OpenAIClient speaks the chat completions protocol, so it also serves
// self-hosted OpenAI-compatible gateways.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	limiter *rate.Limiter
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		limiter: newLimiter(cfg.RequestsPerMinute),
	}, nil
}

func (c *OpenAIClient) Provider() string {
	return "openai"
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := c.generate(ctx, req)
	observability.ObserveLLMCall(c.Provider(), "generate", time.Since(start), err)
	return text, err
}

func (c *OpenAIClient) generate(ctx context.Context, req Request) (string, error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response body: %w", err)
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) GenerateStream(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	start := time.Now()
	text, err := c.generateStream(ctx, req, onChunk)
	observability.ObserveLLMCall(c.Provider(), "stream", time.Since(start), err)
	return text, err
}

func (c *OpenAIClient) generateStream(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	resp, err := c.post(ctx, req, true)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var out strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}
		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return out.String(), fmt.Errorf("decode chat stream event: %w", err)
		}
		if len(event.Choices) == 0 || event.Choices[0].Delta.Content == "" {
			continue
		}
		chunk := event.Choices[0].Delta.Content
		out.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if err := scanner.Err(); err != nil {
		return out.String(), fmt.Errorf("read chat stream: %w", err)
	}
	return out.String(), nil
}

func (c *OpenAIClient) post(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	if err := waitTurn(ctx, c.limiter); err != nil {
		return nil, fmt.Errorf("wait for model quota: %w", err)
	}
	body, err := json.Marshal(buildChatPayload(c.model, req, stream))
	if err != nil {
		return nil, fmt.Errorf("marshal chat payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request chat completion: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(raw))
	}
	return resp, nil
}

func buildChatPayload(model string, req Request, stream bool) map[string]any {
	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
		"temperature": req.Temperature,
	}
	if req.TopP > 0 {
		payload["top_p"] = req.TopP
	}
	if req.MaxOutputTokens > 0 {
		payload["max_tokens"] = req.MaxOutputTokens
	}
	if req.JSON {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}
	if stream {
		payload["stream"] = true
	}
	return payload
}
