package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// NodeRepository gerencia nós de aprendizado no banco
type NodeRepository struct {
	db *sql.DB
}

// NewNodeRepository cria um novo repositório de nós
func NewNodeRepository(db *sql.DB) *NodeRepository {
	return &NodeRepository{db: db}
}

const nodeColumns = `id, topic_id, title, description, created_by, created_at`

func scanNode(s interface{ Scan(...interface{}) error }) (model.Node, error) {
	var n model.Node
	err := s.Scan(&n.ID, &n.TopicID, &n.Title, &n.Description, &n.CreatedBy, &n.CreatedAt)
	return n, err
}

// Create insere um nó em um tópico
func (r *NodeRepository) Create(ctx context.Context, topicID, title, description, createdBy string) (*model.Node, error) {
	query := `
		INSERT INTO nodes (id, topic_id, title, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING ` + nodeColumns

	n, err := scanNode(r.db.QueryRowContext(ctx, query, uuid.NewString(), topicID, title, description, createdBy))
	if err != nil {
		return nil, fmt.Errorf("erro ao criar nó: %w", err)
	}
	return &n, nil
}

// ListByTopic retorna os nós de um tópico
func (r *NodeRepository) ListByTopic(ctx context.Context, topicID string) ([]model.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE topic_id = $1 ORDER BY created_at, title`

	rows, err := r.db.QueryContext(ctx, query, topicID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar nós: %w", err)
	}
	defer rows.Close()

	nodes := []model.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler nó: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// GetMany busca vários nós pelos IDs, preservando apenas os encontrados
func (r *NodeRepository) GetMany(ctx context.Context, ids []string) (map[string]model.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id::text = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar nós: %w", err)
	}
	defer rows.Close()

	found := make(map[string]model.Node, len(ids))
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler nó: %w", err)
		}
		found[n.ID] = n
	}
	return found, rows.Err()
}

// Delete remove um nó criado pelo usuário
func (r *NodeRepository) Delete(ctx context.Context, id, userID string) error {
	var createdBy string
	err := r.db.QueryRowContext(ctx, `SELECT created_by FROM nodes WHERE id = $1`, id).Scan(&createdBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrNotFound
		}
		return fmt.Errorf("erro ao buscar nó: %w", err)
	}
	if createdBy != userID {
		return model.ErrForbidden
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("erro ao remover nó: %w", err)
	}
	return nil
}
