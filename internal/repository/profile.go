package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/lib/pq"
)

// ProfileRepository gerencia o campo JSON de pontuações do perfil
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository cria um novo repositório de perfis
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// RecordQuizScore grava a pontuação sob a chave informada, criando o perfil se preciso
func (r *ProfileRepository) RecordQuizScore(ctx context.Context, userID, key string, score model.QuizScore) error {
	value, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("erro ao codificar pontuação: %w", err)
	}

	query := `
		INSERT INTO profiles (id, quiz_scores, updated_at)
		VALUES ($1, jsonb_build_object($2::text, $3::jsonb), NOW())
		ON CONFLICT (id) DO UPDATE SET
			quiz_scores = jsonb_set(COALESCE(profiles.quiz_scores, '{}'::jsonb), $4::text[], $3::jsonb, true),
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, key, string(value), pq.Array([]string{key})); err != nil {
		return fmt.Errorf("erro ao registrar pontuação do quiz: %w", err)
	}
	return nil
}

// QuizScores retorna todas as pontuações do usuário
func (r *ProfileRepository) QuizScores(ctx context.Context, userID string) (map[string]model.QuizScore, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT quiz_scores FROM profiles WHERE id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]model.QuizScore{}, nil
		}
		return nil, fmt.Errorf("erro ao buscar pontuações: %w", err)
	}

	scores := map[string]model.QuizScore{}
	if err := json.Unmarshal(raw, &scores); err != nil {
		return nil, fmt.Errorf("erro ao decodificar pontuações: %w", err)
	}
	return scores, nil
}
