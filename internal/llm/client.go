package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hivelog/internal/config"
)

// Synthesizer 外部 AI 文本生成服务，返回模型输出的原始 JSON 文本
type Synthesizer interface {
	Generate(ctx context.Context, dc DiscussionContext) (string, error)
	Update(ctx context.Context, uc UpdateContext) (string, error)
}

// New 根据配置选择实现
func New(ctx context.Context, cfg config.LLM) (Synthesizer, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model)
	case "openai", "":
		return NewClient(cfg.BaseURL, cfg.Token, cfg.Model), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client OpenAI 兼容的 chat completions 客户端
type Client struct {
	baseURL    string
	token      string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, token, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		model:   model,
		// 单次调用的超时由调用方的 context 控制
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) Generate(ctx context.Context, dc DiscussionContext) (string, error) {
	return c.complete(ctx, generateSystemPrompt, GeneratePrompt(dc))
}

func (c *Client) Update(ctx context.Context, uc UpdateContext) (string, error) {
	return c.complete(ctx, updateSystemPrompt, UpdatePrompt(uc))
}

func (c *Client) complete(ctx context.Context, system, prompt string) (string, error) {
	reqBody := ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.7,
		MaxTokens:      3000,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm api error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}
