package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/williampepple1/pricewatch/cmd/pricewatch/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	commands.ExecuteContext(ctx)
}
