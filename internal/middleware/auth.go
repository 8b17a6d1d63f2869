package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/TimUdinusYes/backend/internal/cache"
	"github.com/TimUdinusYes/backend/internal/client"
	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/gin-gonic/gin"
)

const (
	// ContextUserID é a chave do ID do usuário no gin.Context
	ContextUserID = "user_id"
	// ContextUsername é a chave do nome do usuário no gin.Context
	ContextUsername = "username"

	// SessionCacheTTL limita por quanto tempo um token resolvido é reaproveitado
	SessionCacheTTL = 2 * time.Minute
)

// AuthConfig contém a configuração do middleware de autenticação
type AuthConfig struct {
	Resolver client.UserResolver
	// Sessions é opcional; sem ele todo request consulta o provedor
	Sessions *cache.TTLCache[client.AuthUser]
	// AllowQueryToken aceita ?token= quando não há header (WebSocket)
	AllowQueryToken bool
}

// BearerToken extrai o token do formato "Bearer {token}"
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// SessionAuth valida o token de sessão junto ao provedor e publica o
// usuário no contexto
func SessionAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if header := c.GetHeader("Authorization"); header != "" {
			t, ok := BearerToken(header)
			if !ok {
				abortUnauthorized(c, "invalid Authorization header, expected: Bearer {token}")
				return
			}
			token = t
		} else if cfg.AllowQueryToken {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			abortUnauthorized(c, "missing session token")
			return
		}

		user, err := resolveUser(c, cfg, token)
		if err != nil {
			if errors.Is(err, model.ErrUnauthorized) {
				abortUnauthorized(c, "invalid or expired session")
				return
			}
			logger.FromGin(c).Error().Err(err).Msg("Falha ao resolver sessão no provedor")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, model.ErrorResponse{
				Success: false,
				Error:   "authentication provider unavailable",
			})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUsername, user.Name)
		ctx := logger.WithUserInfo(c.Request.Context(), user.ID, user.Name)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func resolveUser(c *gin.Context, cfg AuthConfig, token string) (client.AuthUser, error) {
	key := sessionKey(token)
	if cfg.Sessions != nil {
		if u, ok := cfg.Sessions.Get(key); ok {
			return u, nil
		}
	}

	u, err := cfg.Resolver.GetUser(c.Request.Context(), token)
	if err != nil {
		return client.AuthUser{}, err
	}
	if cfg.Sessions != nil {
		cfg.Sessions.Set(key, *u)
	}
	return *u, nil
}

// sessionKey evita manter o token em claro na memória do cache
func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
		Success: false,
		Error:   msg,
	})
}

// UserID retorna o usuário autenticado do request
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Username retorna o nome do usuário autenticado do request
func Username(c *gin.Context) string {
	return c.GetString(ContextUsername)
}
