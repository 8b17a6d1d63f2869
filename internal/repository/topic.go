package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/google/uuid"
)

// TopicRepository gerencia tópicos no banco
type TopicRepository struct {
	db *sql.DB
}

// NewTopicRepository cria um novo repositório de tópicos
func NewTopicRepository(db *sql.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// Create insere um tópico e retorna o registro criado
func (r *TopicRepository) Create(ctx context.Context, title, description, createdBy string) (*model.Topic, error) {
	query := `
		INSERT INTO topics (id, title, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, title, description, created_by, created_at
	`

	var t model.Topic
	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), title, description, createdBy).Scan(
		&t.ID, &t.Title, &t.Description, &t.CreatedBy, &t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar tópico: %w", err)
	}
	return &t, nil
}

// List retorna todos os tópicos ordenados por título
func (r *TopicRepository) List(ctx context.Context) ([]model.Topic, error) {
	query := `
		SELECT id, title, description, created_by, created_at
		FROM topics
		ORDER BY title
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar tópicos: %w", err)
	}
	defer rows.Close()

	topics := []model.Topic{}
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("erro ao ler tópico: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// Get busca um tópico pelo ID
func (r *TopicRepository) Get(ctx context.Context, id string) (*model.Topic, error) {
	query := `
		SELECT id, title, description, created_by, created_at
		FROM topics
		WHERE id = $1
	`

	var t model.Topic
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Title, &t.Description, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("erro ao buscar tópico: %w", err)
	}
	return &t, nil
}
