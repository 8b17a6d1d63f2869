package migration

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/TimUdinusYes/backend/internal/logger"
)

// lockKey identifica o advisory lock das migrações; instâncias que sobem
// juntas aplicam as migrações uma de cada vez.
const lockKey int64 = 0x6c6561726e // "learn"

// Migration representa uma migração de banco de dados
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Migrator aplica e reverte as migrações do schema
type Migrator struct {
	db         *sql.DB
	migrations []Migration
}

func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db, migrations: sorted(getAllMigrations())}
}

func sorted(ms []Migration) []Migration {
	out := append([]Migration(nil), ms...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// Pending retorna, em ordem, as migrações acima da versão atual
func Pending(ms []Migration, current int) []Migration {
	var pending []Migration
	for _, m := range sorted(ms) {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	return pending
}

// locked executa fn numa conexão dedicada que segura o advisory lock
func (m *Migrator) locked(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("erro ao obter conexão: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockKey); err != nil {
		return fmt.Errorf("erro ao obter lock de migração: %w", err)
	}
	defer conn.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", lockKey)

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("erro ao criar tabela de migrações: %w", err)
	}
	return fn(conn)
}

// Run aplica todas as migrações pendentes
func (m *Migrator) Run(ctx context.Context) error {
	log := logger.Get(ctx)

	return m.locked(ctx, func(conn *sql.Conn) error {
		current, err := version(ctx, conn)
		if err != nil {
			return fmt.Errorf("erro ao obter versão atual: %w", err)
		}

		pending := Pending(m.migrations, current)
		log.Info().Int("current_version", current).Int("pending", len(pending)).Msg("Verificando migrações")

		for _, mig := range pending {
			if err := apply(ctx, conn, mig.Up, "INSERT INTO schema_migrations (version) VALUES ($1)", mig.Version); err != nil {
				return fmt.Errorf("erro ao executar migração %d (%s): %w", mig.Version, mig.Name, err)
			}
			log.Info().Int("version", mig.Version).Str("name", mig.Name).Msg("Migração aplicada")
		}
		return nil
	})
}

// Rollback desfaz a última migração aplicada
func (m *Migrator) Rollback(ctx context.Context) error {
	return m.locked(ctx, func(conn *sql.Conn) error {
		current, err := version(ctx, conn)
		if err != nil {
			return fmt.Errorf("erro ao obter versão atual: %w", err)
		}
		if current == 0 {
			return nil
		}

		i := sort.Search(len(m.migrations), func(i int) bool { return m.migrations[i].Version >= current })
		if i == len(m.migrations) || m.migrations[i].Version != current {
			return fmt.Errorf("migração %d não encontrada", current)
		}
		mig := m.migrations[i]

		logger.Get(ctx).Warn().Int("version", mig.Version).Str("name", mig.Name).Msg("Revertendo migração")
		return apply(ctx, conn, mig.Down, "DELETE FROM schema_migrations WHERE version = $1", mig.Version)
	})
}

// Version retorna a última migração aplicada, 0 num banco vazio
func (m *Migrator) Version(ctx context.Context) (int, error) {
	var v int
	err := m.locked(ctx, func(conn *sql.Conn) error {
		var err error
		v, err = version(ctx, conn)
		return err
	})
	return v, err
}

func version(ctx context.Context, conn *sql.Conn) (int, error) {
	var v int
	err := conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}

// apply executa o SQL e o registro de controle na mesma transação
func apply(ctx context.Context, conn *sql.Conn, stmt, record string, v int) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, v); err != nil {
		return err
	}
	return tx.Commit()
}
