package main

import (
	"context"
	"fmt"

	"github.com/treadwise/agent/cmd/treadwise/runtime"

	"github.com/spf13/cobra"
)

func executeWithRuntime(cmd *cobra.Command, fn func(*runtime.RuntimeComponents) error) error {
	loadedCfg, err := loadConfigForCommand(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sessionID, _ := cmd.Flags().GetString("session")

	signals := NewSignalHandler(context.Background())
	signals.Start()
	defer signals.Stop()

	builder := runtime.NewRuntimeBuilder().
		WithContext(signals.Context()).
		WithConfig(loadedCfg).
		WithSession(sessionID)

	components, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	defer components.Stop()

	return fn(components)
}
