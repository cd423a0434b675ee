package main

import (
	"context"
	"fmt"
	"os"

	"github.com/greenfuze/rig/internal/logging"
	"github.com/greenfuze/rig/internal/ports"
)

func main() {
	appLogger, err := logging.New(logging.Options{
		Level:     "info",
		Component: "cli",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create application logger: %v\n", err)
		os.Exit(1)
	}

	correlationID := ports.GenerateCorrelationID()
	ctx := ports.WithCorrelationID(context.Background(), correlationID)

	rootCmd := newRootCmd(appLogger)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		writeDiagnostic(os.Stderr, err)
		os.Exit(1)
	}
}
