package client

//go:generate mockgen -source=llm.go -destination=mocks/mock_llm.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/metrics"
	"github.com/TimUdinusYes/backend/internal/model"
	"golang.org/x/time/rate"
)

const (
	// LLMRequestsPerMinute limite conservador para o plano gratuito
	LLMRequestsPerMinute = 30

	// LLMDefaultTimeout timeout padrão para uma completion
	LLMDefaultTimeout = 45 * time.Second
)

// CompletionRequest descreve uma chamada de chat completion
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// JSONMode pede ao modelo uma resposta em objeto JSON
	JSONMode bool
}

// Completer executa uma completion e devolve o texto da primeira escolha
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// LLMConfig configura o cliente de inferência
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMClient fala com qualquer endpoint compatível com /chat/completions
type LLMClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewLLMClient cria um novo cliente de inferência
func NewLLMClient(cfg LLMConfig) *LLMClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = LLMDefaultTimeout
	}
	return &LLMClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/LLMRequestsPerMinute), 5),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete envia uma única requisição, sem retry
func (c *LLMClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	start := time.Now()
	out, err := c.complete(ctx, req)
	metrics.Get().IncrementLLMCall(err == nil, time.Since(start).Milliseconds())
	return out, err
}

func (c *LLMClient) complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	body := chatRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("criar request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return "", model.ErrTimeout
		}
		return "", fmt.Errorf("executar request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ler resposta: %w", err)
	}

	logger.Get(ctx).Debug().
		Str("model", c.model).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Completion recebida")

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", model.ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", model.ErrUnauthorized
	default:
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 300))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", model.ErrInvalidResponse, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: nenhuma escolha retornada", model.ErrInvalidResponse)
	}

	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
