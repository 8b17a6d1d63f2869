package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/google/uuid"
)

// WorkflowRepository gerencia workflows, seus nós e arestas
type WorkflowRepository struct {
	db *sql.DB
}

// NewWorkflowRepository cria um novo repositório de workflows
func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// Create insere um workflow vazio para o usuário
func (r *WorkflowRepository) Create(ctx context.Context, userID, title, description string) (*model.Workflow, error) {
	query := `
		INSERT INTO workflows (id, user_id, title, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, user_id, title, description, created_at, updated_at
	`

	w := model.Workflow{Nodes: []model.WorkflowNode{}, Edges: []model.WorkflowEdge{}}
	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), userID, title, description).Scan(
		&w.ID, &w.UserID, &w.Title, &w.Description, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar workflow: %w", err)
	}
	return &w, nil
}

// ListByUser retorna os workflows do usuário sem o grafo
func (r *WorkflowRepository) ListByUser(ctx context.Context, userID string) ([]model.Workflow, error) {
	query := `
		SELECT id, user_id, title, description, created_at, updated_at
		FROM workflows
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar workflows: %w", err)
	}
	defer rows.Close()

	workflows := []model.Workflow{}
	for rows.Next() {
		var w model.Workflow
		if err := rows.Scan(&w.ID, &w.UserID, &w.Title, &w.Description, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("erro ao ler workflow: %w", err)
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

// Get busca um workflow com nós e arestas. Cada aresta é enriquecida
// com os títulos dos nós de origem e destino.
func (r *WorkflowRepository) Get(ctx context.Context, id string) (*model.Workflow, error) {
	query := `
		SELECT id, user_id, title, description, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`

	var w model.Workflow
	err := r.db.QueryRowContext(ctx, query, id).Scan(&w.ID, &w.UserID, &w.Title, &w.Description, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("erro ao buscar workflow: %w", err)
	}

	if w.Nodes, err = r.nodes(ctx, id); err != nil {
		return nil, err
	}
	if w.Edges, err = r.edges(ctx, id); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WorkflowRepository) nodes(ctx context.Context, workflowID string) ([]model.WorkflowNode, error) {
	query := `
		SELECT wn.node_id, n.title, n.description, wn.position_x, wn.position_y, wn.sort_order
		FROM workflow_nodes wn
		JOIN nodes n ON n.id = wn.node_id
		WHERE wn.workflow_id = $1
		ORDER BY wn.sort_order, n.title
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar nós do workflow: %w", err)
	}
	defer rows.Close()

	nodes := []model.WorkflowNode{}
	for rows.Next() {
		var n model.WorkflowNode
		if err := rows.Scan(&n.NodeID, &n.Title, &n.Description, &n.PositionX, &n.PositionY, &n.SortOrder); err != nil {
			return nil, fmt.Errorf("erro ao ler nó do workflow: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (r *WorkflowRepository) edges(ctx context.Context, workflowID string) ([]model.WorkflowEdge, error) {
	query := `
		SELECT e.id, e.source_node_id, e.target_node_id,
			COALESCE(s.title, ''), COALESCE(t.title, ''),
			e.is_valid, e.validation_reason
		FROM workflow_edges e
		LEFT JOIN nodes s ON s.id = e.source_node_id
		LEFT JOIN nodes t ON t.id = e.target_node_id
		WHERE e.workflow_id = $1
		ORDER BY e.id
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar arestas do workflow: %w", err)
	}
	defer rows.Close()

	edges := []model.WorkflowEdge{}
	for rows.Next() {
		var e model.WorkflowEdge
		var isValid sql.NullBool
		if err := rows.Scan(&e.ID, &e.SourceNodeID, &e.TargetNodeID, &e.SourceTitle, &e.TargetTitle, &isValid, &e.ValidationReason); err != nil {
			return nil, fmt.Errorf("erro ao ler aresta do workflow: %w", err)
		}
		if isValid.Valid {
			v := isValid.Bool
			e.IsValid = &v
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ReplaceGraph substitui nós e arestas do workflow em uma única transação
func (r *WorkflowRepository) ReplaceGraph(ctx context.Context, workflowID, userID string, nodes []model.WorkflowNode, edges []model.WorkflowEdge) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM workflows WHERE id = $1 FOR UPDATE`, workflowID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrNotFound
		}
		return fmt.Errorf("erro ao bloquear workflow: %w", err)
	}
	if owner != userID {
		return model.ErrForbidden
	}

	verdicts, err := edgeVerdicts(ctx, tx, workflowID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_edges WHERE workflow_id = $1`, workflowID); err != nil {
		return fmt.Errorf("erro ao limpar arestas: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_nodes WHERE workflow_id = $1`, workflowID); err != nil {
		return fmt.Errorf("erro ao limpar nós: %w", err)
	}

	for _, n := range nodes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO workflow_nodes (workflow_id, node_id, position_x, position_y, sort_order)
			VALUES ($1, $2, $3, $4, $5)
		`, workflowID, n.NodeID, n.PositionX, n.PositionY, n.SortOrder)
		if err != nil {
			return fmt.Errorf("erro ao inserir nó %s: %w", n.NodeID, err)
		}
	}

	// IDs são sempre gerados aqui; o veredito só vem de AnnotateEdges e
	// sobrevive enquanto a aresta continuar ligando os mesmos nós.
	for _, e := range edges {
		v := verdicts[[2]string{e.SourceNodeID, e.TargetNodeID}]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO workflow_edges (id, workflow_id, source_node_id, target_node_id, is_valid, validation_reason)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), workflowID, e.SourceNodeID, e.TargetNodeID, v.isValid, v.reason)
		if err != nil {
			return fmt.Errorf("erro ao inserir aresta %s->%s: %w", e.SourceNodeID, e.TargetNodeID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE workflows SET updated_at = NOW() WHERE id = $1`, workflowID); err != nil {
		return fmt.Errorf("erro ao atualizar workflow: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("erro ao confirmar transação: %w", err)
	}

	logger.Get(ctx).Info().
		Str("workflow_id", workflowID).
		Int("nodes", len(nodes)).
		Int("edges", len(edges)).
		Msg("Grafo do workflow atualizado")
	return nil
}

type edgeVerdict struct {
	isValid sql.NullBool
	reason  string
}

// edgeVerdicts lê os vereditos já gravados nas arestas do workflow, por par de nós
func edgeVerdicts(ctx context.Context, tx *sql.Tx, workflowID string) (map[[2]string]edgeVerdict, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT source_node_id, target_node_id, is_valid, validation_reason
		FROM workflow_edges
		WHERE workflow_id = $1 AND is_valid IS NOT NULL
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler vereditos das arestas: %w", err)
	}
	defer rows.Close()

	out := make(map[[2]string]edgeVerdict)
	for rows.Next() {
		var from, to string
		var v edgeVerdict
		if err := rows.Scan(&from, &to, &v.isValid, &v.reason); err != nil {
			return nil, fmt.Errorf("erro ao ler vereditos das arestas: %w", err)
		}
		out[[2]string{from, to}] = v
	}
	return out, rows.Err()
}

// AnnotateEdges grava o veredito em todas as arestas do usuário que ligam os dois nós
func (r *WorkflowRepository) AnnotateEdges(ctx context.Context, userID, sourceNodeID, targetNodeID string, isValid bool, reason string) (int64, error) {
	query := `
		UPDATE workflow_edges e
		SET is_valid = $3, validation_reason = $4
		FROM workflows w
		WHERE w.id = e.workflow_id
			AND w.user_id = $5
			AND e.source_node_id = $1
			AND e.target_node_id = $2
	`

	res, err := r.db.ExecContext(ctx, query, sourceNodeID, targetNodeID, isValid, reason, userID)
	if err != nil {
		return 0, fmt.Errorf("erro ao anotar arestas: %w", err)
	}
	return res.RowsAffected()
}

// Delete remove um workflow do usuário
func (r *WorkflowRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("erro ao remover workflow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("erro ao remover workflow: %w", err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
