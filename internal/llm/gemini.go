package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ancillary-hub/ancillary/internal/observability"
)

type GeminiConfig struct {
	APIKey            string
	Vertex            bool
	Project           string
	Location          string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

type GeminiClient struct {
	models   contentModels
	model    string
	provider string
	timeout  time.Duration
	limiter  *rate.Limiter
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Vertex {
		clientCfg.Backend = genai.BackendVertexAI
		// Vertex express mode authenticates with the key alone.
		if clientCfg.APIKey == "" {
			clientCfg.Project = cfg.Project
			clientCfg.Location = cfg.Location
		}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return NewGeminiWithModels(client.Models, cfg), nil
}

func NewGeminiWithModels(models contentModels, cfg GeminiConfig) *GeminiClient {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	provider := "gemini"
	if cfg.Vertex {
		provider = "vertex"
	}
	return &GeminiClient{
		models:   models,
		model:    model,
		provider: provider,
		timeout:  cfg.Timeout,
		limiter:  newLimiter(cfg.RequestsPerMinute),
	}
}

func (c *GeminiClient) Provider() string {
	return c.provider
}

func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := c.generate(ctx, req)
	observability.ObserveLLMCall(c.provider, "generate", time.Since(start), err)
	return text, err
}

func (c *GeminiClient) generate(ctx context.Context, req Request) (string, error) {
	if err := waitTurn(ctx, c.limiter); err != nil {
		return "", fmt.Errorf("wait for model quota: %w", err)
	}
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.models.GenerateContent(ctx, c.model, userContent(req.Prompt), contentConfig(req))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return responseText(resp), nil
}

func (c *GeminiClient) GenerateStream(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	start := time.Now()
	text, err := c.generateStream(ctx, req, onChunk)
	observability.ObserveLLMCall(c.provider, "stream", time.Since(start), err)
	return text, err
}

func (c *GeminiClient) generateStream(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	if err := waitTurn(ctx, c.limiter); err != nil {
		return "", fmt.Errorf("wait for model quota: %w", err)
	}
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var out strings.Builder
	for resp, err := range c.models.GenerateContentStream(ctx, c.model, userContent(req.Prompt), contentConfig(req)) {
		if err != nil {
			return out.String(), fmt.Errorf("stream content: %w", err)
		}
		chunk := responseText(resp)
		if chunk == "" {
			continue
		}
		out.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	return out.String(), nil
}

func userContent(prompt string) []*genai.Content {
	return []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}
}

func contentConfig(req Request) *genai.GenerateContentConfig {
	temperature := req.Temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.TopP > 0 {
		topP := req.TopP
		cfg.TopP = &topP
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = req.MaxOutputTokens
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// responseText joins the text parts of the first candidate, skipping
// thought parts.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
