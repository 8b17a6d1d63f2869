package commands

import (
	"fmt"

	"github.com/TimUdinusYes/backend/internal/database"
	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/migration"
	"github.com/spf13/cobra"
)

func (c *CLI) newMigrateCmd() *cobra.Command {
	var rollback int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			_, db, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer database.Close(db)

			m := migration.NewMigrator(db)
			if rollback > 0 {
				for i := 0; i < rollback; i++ {
					if err := m.Rollback(ctx); err != nil {
						return fmt.Errorf("erro ao reverter migração: %w", err)
					}
				}
			} else if err := m.Run(ctx); err != nil {
				return fmt.Errorf("erro ao executar migrações: %w", err)
			}

			version, err := m.Version(ctx)
			if err != nil {
				return err
			}
			logger.Global().Info().Int("version", version).Msg("Schema atualizado")
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
	cmd.Flags().IntVar(&rollback, "rollback", 0, "Roll back this many migrations instead of migrating up")
	return cmd
}
