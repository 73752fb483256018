package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	llmprompter "github.com/temirov/llm-prompter/cmd/llm-prompter"
)

func main() {
	logger := zap.Must(zap.NewProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	executionErr := llmprompter.Execute(ctx)
	stop()
	if executionErr != nil {
		logger.Error("command execution failed", zap.Error(executionErr))
		_ = logger.Sync()
		os.Exit(1)
	}

	_ = logger.Sync()
}
