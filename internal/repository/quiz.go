package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/google/uuid"
)

// QuizRepository gerencia páginas de material e perguntas geradas
type QuizRepository struct {
	db *sql.DB
}

// NewQuizRepository cria um novo repositório de quiz
func NewQuizRepository(db *sql.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// GetPage busca o conteúdo de uma página de material
func (r *QuizRepository) GetPage(ctx context.Context, materialID string, page int) (*model.MaterialPage, error) {
	query := `
		SELECT material_id, page_number, title, content
		FROM material_pages
		WHERE material_id = $1 AND page_number = $2
	`

	var p model.MaterialPage
	err := r.db.QueryRowContext(ctx, query, materialID, page).Scan(&p.MaterialID, &p.PageNumber, &p.Title, &p.Content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("erro ao buscar página do material: %w", err)
	}
	return &p, nil
}

// GetQuestion busca a pergunta salva da página. Retorna nil, nil quando não existe.
func (r *QuizRepository) GetQuestion(ctx context.Context, materialID string, page int) (*model.QuizQuestion, error) {
	query := `
		SELECT id, material_id, page_number, question, options, correct_index, explanation, created_at
		FROM quiz_questions
		WHERE material_id = $1 AND page_number = $2
	`

	var q model.QuizQuestion
	var options []byte
	err := r.db.QueryRowContext(ctx, query, materialID, page).Scan(
		&q.ID, &q.MaterialID, &q.PageNumber, &q.Question, &options, &q.CorrectIndex, &q.Explanation, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao buscar pergunta: %w", err)
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return nil, fmt.Errorf("erro ao decodificar opções da pergunta: %w", err)
	}
	return &q, nil
}

// SaveQuestion insere a pergunta da página. Se outra requisição gravou
// primeiro, a pergunta existente é retornada.
func (r *QuizRepository) SaveQuestion(ctx context.Context, q model.QuizQuestion) (*model.QuizQuestion, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return nil, fmt.Errorf("erro ao codificar opções da pergunta: %w", err)
	}

	query := `
		INSERT INTO quiz_questions (id, material_id, page_number, question, options, correct_index, explanation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (material_id, page_number) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), q.MaterialID, q.PageNumber, q.Question, options, q.CorrectIndex, q.Explanation); err != nil {
		return nil, fmt.Errorf("erro ao salvar pergunta: %w", err)
	}

	saved, err := r.GetQuestion(ctx, q.MaterialID, q.PageNumber)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("pergunta não encontrada após inserção")
	}
	return saved, nil
}
