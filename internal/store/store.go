// Package store persists frozen graphs into a versioned SQLite schema. The
// whole graph goes in within one transaction; a failed write leaves the
// database untouched.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/greenfuze/rig/internal/ports"
	"github.com/greenfuze/rig/internal/rig"
	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

// Store owns a SQLite database holding persisted graphs.
type Store struct {
	db  *sql.DB
	log ports.Logger
}

var _ ports.Store = (*Store)(nil)

// Open creates or opens the database at path and brings the schema up to the
// current version. A database written by a newer schema is refused.
func Open(path string, log ports.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	var newest sql.NullInt64
	if err := db.QueryRow("SELECT MAX(schema_version) FROM rig_metadata").Scan(&newest); err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if newest.Valid && newest.Int64 > SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("database schema version %d is newer than supported %d", newest.Int64, SchemaVersion)
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

// entityRef ties a model id to its database row and node kind, for resolving
// polymorphic dependency columns.
type entityRef struct {
	kind  rig.NodeKind
	rowID int64
}

// Persist writes the graph in a single transaction. Surrogate row ids may
// differ across runs; the logical content is identical for identical inputs.
func (s *Store) Persist(ctx context.Context, g *rig.Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rigerrors.NewTransactionFailedError(err)
	}
	defer tx.Rollback()

	if err := s.persistTx(ctx, tx, g); err != nil {
		return rigerrors.NewTransactionFailedError(err)
	}
	if err := tx.Commit(); err != nil {
		return rigerrors.NewTransactionFailedError(err)
	}
	s.log.Debug(ctx, "graph persisted", "repository", g.Repository.Name)
	return nil
}

func (s *Store) persistTx(ctx context.Context, tx *sql.Tx, g *rig.Graph) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO rig_metadata (schema_version, created_at) VALUES (?, ?)",
		SchemaVersion, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	rigID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	repo := g.Repository
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO repository_info
			(rig_id, name, root_path, build_dir, output_dir, configure_cmd, build_cmd, install_cmd, test_cmd)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rigID, repo.Name, repo.RootPath, repo.BuildDir, repo.OutputDir,
		repo.ConfigureCmd, repo.BuildCmd, repo.InstallCmd, repo.TestCmd); err != nil {
		return err
	}

	bs := g.BuildSystem
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO build_system_info (rig_id, name, version, generator, build_type) VALUES (?, ?, ?, ?, ?)",
		rigID, bs.Name, bs.Version, bs.Generator, bs.BuildType); err != nil {
		return err
	}

	insertEvidence := func(kind rig.NodeKind, name string, ev rig.Evidence) (sql.NullInt64, error) {
		if ev.Empty() {
			return sql.NullInt64{}, nil
		}
		frames := make([]string, 0, len(ev.CallStack))
		for _, f := range ev.CallStack {
			frames = append(frames, f.String())
		}
		payload, err := json.Marshal(frames)
		if err != nil {
			return sql.NullInt64{}, err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO evidence (rig_id, entity_kind, entity_name, call_stack_json) VALUES (?, ?, ?, ?)",
			rigID, string(kind), name, string(payload))
		if err != nil {
			return sql.NullInt64{}, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return sql.NullInt64{}, err
		}
		return sql.NullInt64{Int64: id, Valid: true}, nil
	}

	managerIDs := make(map[rig.PackageManager]int64)
	managerID := func(m rig.PackageManager) (int64, error) {
		if id, ok := managerIDs[m]; ok {
			return id, nil
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO package_managers (name) VALUES (?)", string(m)); err != nil {
			return 0, err
		}
		var id int64
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM package_managers WHERE name = ?", string(m)).Scan(&id); err != nil {
			return 0, err
		}
		managerIDs[m] = id
		return id, nil
	}

	rows := make(map[rig.ID]entityRef, len(g.Components)+len(g.Aggregators)+len(g.Runners)+len(g.Utilities))

	externalRows := make(map[rig.ID]int64, len(g.Externals))
	for _, pkg := range g.Externals {
		mid, err := managerID(pkg.Manager)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO external_packages (rig_id, package_manager_id, name, version) VALUES (?, ?, ?, ?)",
			rigID, mid, pkg.Name, pkg.Version)
		if err != nil {
			return err
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		externalRows[pkg.ID] = rowID
	}

	for _, c := range g.Components {
		evID, err := insertEvidence(rig.NodeComponent, c.Name, c.Evidence)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO components
				(rig_id, name, kind, language, runtime, output_filename, output_path, evidence_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rigID, c.Name, string(c.Kind), string(c.Language), string(c.Runtime),
			c.OutputFilename, c.OutputPath, evID.Int64)
		if err != nil {
			return err
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rows[c.ID] = entityRef{kind: rig.NodeComponent, rowID: rowID}

		for _, src := range c.Sources {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO component_source_files (component_id, path) VALUES (?, ?)",
				rowID, src); err != nil {
				return err
			}
		}
		for _, ext := range c.Externals {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO component_external_packages (component_id, external_package_id) VALUES (?, ?)",
				rowID, externalRows[ext]); err != nil {
				return err
			}
		}
	}

	for _, a := range g.Aggregators {
		evID, err := insertEvidence(rig.NodeAggregator, a.Name, a.Evidence)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO aggregators (rig_id, name, evidence_id) VALUES (?, ?, ?)",
			rigID, a.Name, evID.Int64)
		if err != nil {
			return err
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rows[a.ID] = entityRef{kind: rig.NodeAggregator, rowID: rowID}
	}

	for _, r := range g.Runners {
		evID, err := insertEvidence(rig.NodeRunner, r.Name, r.Evidence)
		if err != nil {
			return err
		}
		command, err := json.Marshal(r.Command)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO runners (rig_id, name, command_json, evidence_id) VALUES (?, ?, ?, ?)",
			rigID, r.Name, string(command), evID.Int64)
		if err != nil {
			return err
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rows[r.ID] = entityRef{kind: rig.NodeRunner, rowID: rowID}
	}

	for _, u := range g.Utilities {
		evID, err := insertEvidence(rig.NodeUtility, u.Name, u.Evidence)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO utilities (rig_id, name, evidence_id) VALUES (?, ?, ?)",
			rigID, u.Name, evID)
		if err != nil {
			return err
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rows[u.ID] = entityRef{kind: rig.NodeUtility, rowID: rowID}
	}

	depColumns := map[rig.NodeKind]string{
		rig.NodeComponent:  "depends_on_component_id",
		rig.NodeAggregator: "depends_on_aggregator_id",
		rig.NodeRunner:     "depends_on_runner_id",
		rig.NodeUtility:    "depends_on_utility_id",
	}
	insertEdges := func(table, ownerColumn string, ownerRow int64, deps []rig.ID) error {
		for _, dep := range deps {
			ref, ok := rows[dep]
			if !ok {
				return fmt.Errorf("dependency id %d has no persisted row", dep)
			}
			column, ok := depColumns[ref.kind]
			if !ok {
				return fmt.Errorf("dependency id %d has unsupported kind %s", dep, ref.kind)
			}
			stmt := fmt.Sprintf(
				"INSERT INTO %s (rig_id, %s, %s) VALUES (?, ?, ?)", table, ownerColumn, column)
			if _, err := tx.ExecContext(ctx, stmt, rigID, ownerRow, ref.rowID); err != nil {
				return err
			}
		}
		return nil
	}

	for _, c := range g.Components {
		if err := insertEdges("component_dependencies", "component_id", rows[c.ID].rowID, c.DependsOn); err != nil {
			return err
		}
	}
	for _, a := range g.Aggregators {
		if err := insertEdges("aggregator_dependencies", "aggregator_id", rows[a.ID].rowID, a.DependsOn); err != nil {
			return err
		}
	}
	for _, r := range g.Runners {
		if err := insertEdges("runner_dependencies", "runner_id", rows[r.ID].rowID, r.DependsOn); err != nil {
			return err
		}
	}

	for _, c := range g.Components {
		compRow := rows[c.ID].rowID
		locationRows := make(map[string]int64, len(c.Locations))
		for _, loc := range c.Locations {
			evID, err := insertEvidence(rig.NodeComponent, c.Name, loc.Evidence)
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx,
				"INSERT INTO component_locations (rig_id, component_id, path, action, evidence_id) VALUES (?, ?, ?, ?, ?)",
				rigID, compRow, loc.Path, string(loc.Action), evID)
			if err != nil {
				return err
			}
			locRow, err := res.LastInsertId()
			if err != nil {
				return err
			}
			locationRows[loc.Path] = locRow
		}
		for _, loc := range c.Locations {
			if loc.SourceLocation == "" {
				continue
			}
			source, ok := locationRows[loc.SourceLocation]
			if !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO component_locations_rel (location_id, source_location_id) VALUES (?, ?)",
				locationRows[loc.Path], source); err != nil {
				return err
			}
		}
	}

	for _, t := range g.Tests {
		evID, err := insertEvidence(rig.NodeTest, t.Name, t.Evidence)
		if err != nil {
			return err
		}
		command, err := json.Marshal(t.Command)
		if err != nil {
			return err
		}
		properties, err := json.Marshal(t.Properties)
		if err != nil {
			return err
		}
		var componentRow sql.NullInt64
		if t.LinkedComponent != 0 {
			componentRow = sql.NullInt64{Int64: rows[t.LinkedComponent].rowID, Valid: true}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tests
				(rig_id, name, framework, test_type, command_json, properties_json, component_id, evidence_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rigID, t.Name, string(t.Framework), t.Type, string(command), string(properties),
			componentRow, evID.Int64)
		if err != nil {
			return err
		}
		testRow, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for _, src := range t.SourceFiles {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO test_source_files (test_id, path) VALUES (?, ?)",
				testRow, src); err != nil {
				return err
			}
		}
		if componentRow.Valid {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO test_components (test_id, component_id) VALUES (?, ?)",
				testRow, componentRow.Int64); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE components SET test_id = ? WHERE id = ?",
				testRow, componentRow.Int64); err != nil {
				return err
			}
		}
	}

	return nil
}
