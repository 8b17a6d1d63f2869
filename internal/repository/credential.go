package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
)

// CredentialRepository gerencia os tokens do Google Calendar. Os valores
// chegam cifrados; o repositório nunca vê o token em claro.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository cria um novo repositório de credenciais
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Upsert insere ou atualiza a credencial do usuário
func (r *CredentialRepository) Upsert(ctx context.Context, c model.CalendarCredential) error {
	query := `
		INSERT INTO calendar_credentials (user_id, access_token, refresh_token, expiry, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, calendar_credentials.refresh_token),
			expiry = EXCLUDED.expiry,
			updated_at = NOW()
	`

	var refresh interface{}
	if len(c.RefreshToken) > 0 {
		refresh = c.RefreshToken
	}
	var expiry sql.NullTime
	if !c.Expiry.IsZero() {
		expiry = sql.NullTime{Time: c.Expiry, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query, c.UserID, c.AccessToken, refresh, expiry); err != nil {
		logger.Get(ctx).Error().Err(err).Str("user_id", c.UserID).Msg("Erro ao salvar credencial do calendário")
		return fmt.Errorf("erro ao salvar credencial do calendário: %w", err)
	}
	return nil
}

// Get busca a credencial do usuário
func (r *CredentialRepository) Get(ctx context.Context, userID string) (*model.CalendarCredential, error) {
	query := `
		SELECT user_id, access_token, COALESCE(refresh_token, ''::bytea), expiry, updated_at
		FROM calendar_credentials
		WHERE user_id = $1
	`

	var c model.CalendarCredential
	var expiry sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &expiry, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNoCalendarToken
		}
		return nil, fmt.Errorf("erro ao buscar credencial do calendário: %w", err)
	}
	if expiry.Valid {
		c.Expiry = expiry.Time
	}
	return &c, nil
}
