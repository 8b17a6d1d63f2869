package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthClientGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"u-1","email":"ana@example.com","user_metadata":{"full_name":"Ana"}}`))
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL, "service-key")

	user, err := c.GetUser(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, &AuthUser{ID: "u-1", Email: "ana@example.com", Name: "Ana"}, user)

	_, err = c.GetUser(context.Background(), "bad")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestAuthClientFallsBackToEmailAsName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"u-2","email":"budi@example.com"}`))
	}))
	defer srv.Close()

	user, err := NewAuthClient(srv.URL, "k").GetUser(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "budi@example.com", user.Name)
}
