package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
)

// ValidationRepository é o cache durável de vereditos de caminho.
// As chaves chegam já canonizadas pelo serviço.
type ValidationRepository struct {
	db *sql.DB
}

// NewValidationRepository cria um novo repositório de validações
func NewValidationRepository(db *sql.DB) *ValidationRepository {
	return &ValidationRepository{db: db}
}

// Get busca o veredito de um par. Retorna nil, nil quando não existe.
func (r *ValidationRepository) Get(ctx context.Context, sourceName, targetName string) (*model.NodePairValidation, error) {
	query := `
		SELECT source_name, target_name, is_valid, reason, recommendation, updated_at
		FROM node_pair_validations
		WHERE source_name = $1 AND target_name = $2
	`

	var v model.NodePairValidation
	var recommendation sql.NullString
	err := r.db.QueryRowContext(ctx, query, sourceName, targetName).Scan(
		&v.SourceName,
		&v.TargetName,
		&v.IsValid,
		&v.Reason,
		&recommendation,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao buscar validação do par: %w", err)
	}
	if recommendation.Valid {
		v.Recommendation = &recommendation.String
	}

	return &v, nil
}

// Upsert grava o veredito; em conflito o último a escrever vence
func (r *ValidationRepository) Upsert(ctx context.Context, v model.NodePairValidation) error {
	query := `
		INSERT INTO node_pair_validations (source_name, target_name, is_valid, reason, recommendation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (source_name, target_name) DO UPDATE SET
			is_valid = EXCLUDED.is_valid,
			reason = EXCLUDED.reason,
			recommendation = EXCLUDED.recommendation,
			updated_at = NOW()
	`

	var recommendation sql.NullString
	if v.Recommendation != nil {
		recommendation = sql.NullString{String: *v.Recommendation, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query, v.SourceName, v.TargetName, v.IsValid, v.Reason, recommendation)
	if err != nil {
		logger.Get(ctx).Error().Err(err).
			Str("source", v.SourceName).
			Str("target", v.TargetName).
			Msg("Erro ao inserir/atualizar validação do par")
		return fmt.Errorf("erro ao inserir/atualizar validação do par: %w", err)
	}

	return nil
}
