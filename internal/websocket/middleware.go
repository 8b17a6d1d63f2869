package websocket

import (
	"github.com/TimUdinusYes/backend/internal/cache"
	"github.com/TimUdinusYes/backend/internal/client"
	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware authenticates WebSocket upgrades. Browsers cannot set
// headers on the handshake, so the session token may come as ?token=.
func AuthMiddleware(resolver client.UserResolver, sessions *cache.TTLCache[client.AuthUser]) gin.HandlerFunc {
	return middleware.SessionAuth(middleware.AuthConfig{
		Resolver:        resolver,
		Sessions:        sessions,
		AllowQueryToken: true,
	})
}
