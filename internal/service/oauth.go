package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TimUdinusYes/backend/internal/cache"
	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CalendarEventsScope lets the app create events on the user's calendars.
const CalendarEventsScope = "https://www.googleapis.com/auth/calendar.events"

const oauthStateTTL = 10 * time.Minute

// ErrInvalidOAuthState is returned for unknown or expired callback states.
var ErrInvalidOAuthState = errors.New("invalid or expired OAuth state")

// CredentialStore persists sealed calendar credentials.
type CredentialStore interface {
	Upsert(ctx context.Context, c model.CalendarCredential) error
	Get(ctx context.Context, userID string) (*model.CalendarCredential, error)
}

// CalendarAuthConfig holds the Google OAuth client settings.
type CalendarAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// CalendarAuthService runs the Google OAuth code flow and hands out fresh
// access tokens for stored credentials.
type CalendarAuthService struct {
	oauth  *oauth2.Config
	store  CredentialStore
	vault  *TokenVault
	states *cache.TTLCache[string]
}

// NewCalendarAuthService creates the service. The endpoint defaults to Google's.
func NewCalendarAuthService(cfg CalendarAuthConfig, store CredentialStore, vault *TokenVault) *CalendarAuthService {
	return &CalendarAuthService{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       []string{CalendarEventsScope},
		},
		store:  store,
		vault:  vault,
		states: cache.New[string](oauthStateTTL, 10000, cache.WithSweepInterval(time.Minute)),
	}
}

// WithEndpoint overrides the OAuth endpoint, for tests.
func (s *CalendarAuthService) WithEndpoint(ep oauth2.Endpoint) *CalendarAuthService {
	s.oauth.Endpoint = ep
	return s
}

// AuthURL returns the consent URL for the user. The state is single-use.
func (s *CalendarAuthService) AuthURL(userID string) string {
	state := uuid.NewString()
	s.states.Set(state, userID)
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// HandleCallback exchanges the code and stores the sealed tokens. It returns
// the user the state was issued to.
func (s *CalendarAuthService) HandleCallback(ctx context.Context, state, code string) (string, error) {
	userID, ok := s.states.Get(state)
	if !ok {
		return "", ErrInvalidOAuthState
	}
	s.states.Delete(state)

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if err := s.save(ctx, userID, tok); err != nil {
		return "", err
	}

	logger.AuditResource(ctx, logger.AuditActionCalendarLink, userID, "calendar", "")
	return userID, nil
}

// AccessToken returns a valid access token for the user, refreshing and
// re-storing it when expired.
func (s *CalendarAuthService) AccessToken(ctx context.Context, userID string) (string, error) {
	cred, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	access, err := s.vault.Open(cred.AccessToken)
	if err != nil {
		return "", fmt.Errorf("open access token: %w", err)
	}
	tok := &oauth2.Token{AccessToken: access, Expiry: cred.Expiry, TokenType: "Bearer"}
	if len(cred.RefreshToken) > 0 {
		if tok.RefreshToken, err = s.vault.Open(cred.RefreshToken); err != nil {
			return "", fmt.Errorf("open refresh token: %w", err)
		}
	}

	fresh, err := s.oauth.TokenSource(ctx, tok).Token()
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	if fresh.AccessToken != access {
		if err := s.save(ctx, userID, fresh); err != nil {
			logger.Get(ctx).Warn().Err(err).Str("user_id", userID).Msg("Failed to store refreshed calendar token")
		}
	}
	return fresh.AccessToken, nil
}

func (s *CalendarAuthService) save(ctx context.Context, userID string, tok *oauth2.Token) error {
	access, err := s.vault.Seal(tok.AccessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	cred := model.CalendarCredential{UserID: userID, AccessToken: access, Expiry: tok.Expiry}
	if tok.RefreshToken != "" {
		if cred.RefreshToken, err = s.vault.Seal(tok.RefreshToken); err != nil {
			return fmt.Errorf("seal refresh token: %w", err)
		}
	}
	return s.store.Upsert(ctx, cred)
}

// Close stops the state cache sweeper.
func (s *CalendarAuthService) Close() {
	s.states.Stop()
}
