// Package commands implements the api command line.
package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// Version is the release version, set at build time with -ldflags.
var Version = "1.0.0"

// CLI represents the api command line.
type CLI struct {
	rootCmd *cobra.Command
}

// New creates the command tree. Without a subcommand the server starts.
func New() *CLI {
	c := &CLI{}

	serve := c.newServeCmd()
	rootCmd := &cobra.Command{
		Use:           "api",
		Short:         "Learning path API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		RunE:          serve.RunE,
	}
	rootCmd.Flags().AddFlagSet(serve.Flags())

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(c.newMigrateCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	c.rootCmd = rootCmd
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}
