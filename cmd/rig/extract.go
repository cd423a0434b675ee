package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/greenfuze/rig/internal/app"
	"github.com/greenfuze/rig/internal/config"
	"github.com/greenfuze/rig/internal/logging"
	"github.com/greenfuze/rig/internal/plugin"
	"github.com/greenfuze/rig/internal/ports"
	"github.com/greenfuze/rig/internal/store"
	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

const defaultDatabase = "rig.db"

func newExtractCmd(flags *rootFlags, logger ports.Logger) *cobra.Command {
	var dbPath string
	var buildSystem string

	cmd := &cobra.Command{
		Use:   "extract <repo> <build>",
		Short: "Extract the build graph of a configured build tree and persist it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			buildDir, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}

			log := logger
			if flags.verbose {
				verbose, err := logging.New(logging.Options{Level: "debug", Component: "cli"})
				if err != nil {
					return err
				}
				log = verbose
			}

			cfg, err := config.Load(filepath.Join(repoRoot, config.DefaultFileName))
			if err != nil {
				return err
			}

			path := dbPath
			if path == "" {
				path = cfg.Database.Path
			}
			if path == "" {
				path = defaultDatabase
			}

			ctx := cmd.Context()
			discover, err := plugin.Get(buildSystem)
			if err != nil {
				return err
			}
			buildPlugin, err := discover(ctx, repoRoot, buildDir, log.With("component", "plugin"))
			if err != nil {
				return err
			}

			db, err := store.Open(path, log.With("component", "store"))
			if err != nil {
				return err
			}
			defer db.Close()

			extractor := app.NewExtractor(buildPlugin, db, log.With("component", "extractor"))
			graph, err := extractor.Execute(ctx, app.Options{
				RepoRoot: repoRoot,
				BuildDir: buildDir,
				Config:   cfg,
			})
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), renderSummary(graph))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Database path (default: .rig.yaml setting or rig.db)")
	cmd.Flags().StringVar(&buildSystem, "build-system", "cmake", "Build-system plugin to use")

	return cmd
}

// diagnostic is the single JSON object every failure prints on stderr.
type diagnostic struct {
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	Entities []string `json:"entities,omitempty"`
}

func writeDiagnostic(w io.Writer, err error) {
	diag := diagnostic{Kind: "internal", Message: err.Error()}
	var typed rigerrors.Diagnostic
	if errors.As(err, &typed) {
		diag.Kind = typed.Kind()
		diag.Entities = typed.Entities()
	}
	payload, marshalErr := json.Marshal(diag)
	if marshalErr != nil {
		io.WriteString(w, err.Error()+"\n")
		return
	}
	w.Write(append(payload, '\n'))
}
