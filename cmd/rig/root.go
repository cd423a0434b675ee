package main

import (
	"github.com/spf13/cobra"

	"github.com/greenfuze/rig/internal/ports"
)

type rootFlags struct {
	verbose bool
}

func newRootCmd(logger ports.Logger) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "rig",
		Short:         "rig extracts an evidence-backed build graph from a configured repository",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newExtractCmd(flags, logger))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
