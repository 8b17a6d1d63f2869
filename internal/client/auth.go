package client

//go:generate mockgen -source=auth.go -destination=mocks/mock_auth.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TimUdinusYes/backend/internal/model"
)

// AuthUser é o usuário resolvido a partir do token de sessão
type AuthUser struct {
	ID    string
	Email string
	Name  string
}

// UserResolver resolve um token de sessão no usuário do provedor
type UserResolver interface {
	GetUser(ctx context.Context, accessToken string) (*AuthUser, error)
}

// AuthClient consulta o endpoint de usuário do provedor de autenticação
type AuthClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewAuthClient cria um novo cliente do provedor
func NewAuthClient(baseURL, serviceKey string) *AuthClient {
	return &AuthClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetUser valida o token junto ao provedor
func (c *AuthClient) GetUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("criar request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, model.ErrTimeout
		}
		return nil, fmt.Errorf("executar request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, model.ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, model.ErrRateLimited
	default:
		return nil, fmt.Errorf("status %d do provedor de autenticação", resp.StatusCode)
	}

	var body struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		UserMetadata struct {
			FullName string `json:"full_name"`
			Name     string `json:"name"`
		} `json:"user_metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if body.ID == "" {
		return nil, model.ErrUnauthorized
	}

	name := body.UserMetadata.FullName
	if name == "" {
		name = body.UserMetadata.Name
	}
	if name == "" {
		name = body.Email
	}
	return &AuthUser{ID: body.ID, Email: body.Email, Name: name}, nil
}
