package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/TimUdinusYes/backend/cmd/api/commands"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := commands.New().Execute(ctx); err != nil {
		// O logger pode não estar inicializado ainda
		_, _ = os.Stderr.WriteString("Erro: " + err.Error() + "\n")
		return 1
	}
	return 0
}
