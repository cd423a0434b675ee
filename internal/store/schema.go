package store

// SchemaVersion is bumped whenever the relational layout changes. The store
// refuses to open a database written by a newer schema.
const SchemaVersion = 1

// Schema history:
// v1: initial layout — rig metadata, entity tables, polymorphic dependency
//     edges, external packages, locations, and many-to-many link tables.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS rig_metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		schema_version INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS repository_info (
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		root_path TEXT NOT NULL,
		build_dir TEXT NOT NULL,
		output_dir TEXT NOT NULL DEFAULT '',
		configure_cmd TEXT NOT NULL DEFAULT '',
		build_cmd TEXT NOT NULL DEFAULT '',
		install_cmd TEXT NOT NULL DEFAULT '',
		test_cmd TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS build_system_info (
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		generator TEXT NOT NULL DEFAULT '',
		build_type TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS evidence (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		entity_kind TEXT NOT NULL,
		entity_name TEXT NOT NULL,
		call_stack_json TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_entity
		ON evidence(rig_id, entity_kind, entity_name)`,
	`CREATE TABLE IF NOT EXISTS package_managers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS external_packages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		package_manager_id INTEGER NOT NULL REFERENCES package_managers(id),
		name TEXT NOT NULL,
		version TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS components (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		language TEXT NOT NULL,
		runtime TEXT NOT NULL,
		output_filename TEXT NOT NULL DEFAULT '',
		output_path TEXT NOT NULL DEFAULT '',
		evidence_id INTEGER NOT NULL REFERENCES evidence(id),
		test_id INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS aggregators (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		evidence_id INTEGER NOT NULL REFERENCES evidence(id)
	)`,
	`CREATE TABLE IF NOT EXISTS runners (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		command_json TEXT NOT NULL DEFAULT '[]',
		evidence_id INTEGER NOT NULL REFERENCES evidence(id)
	)`,
	`CREATE TABLE IF NOT EXISTS utilities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		evidence_id INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS tests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		framework TEXT NOT NULL,
		test_type TEXT NOT NULL DEFAULT '',
		command_json TEXT NOT NULL DEFAULT '[]',
		properties_json TEXT NOT NULL DEFAULT '{}',
		component_id INTEGER,
		evidence_id INTEGER NOT NULL REFERENCES evidence(id)
	)`,
	`CREATE TABLE IF NOT EXISTS component_dependencies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		component_id INTEGER NOT NULL REFERENCES components(id) ON DELETE CASCADE,
		depends_on_component_id INTEGER REFERENCES components(id) ON DELETE CASCADE,
		depends_on_aggregator_id INTEGER REFERENCES aggregators(id) ON DELETE CASCADE,
		depends_on_runner_id INTEGER REFERENCES runners(id) ON DELETE CASCADE,
		depends_on_utility_id INTEGER REFERENCES utilities(id) ON DELETE CASCADE,
		CHECK (
			(depends_on_component_id IS NOT NULL) +
			(depends_on_aggregator_id IS NOT NULL) +
			(depends_on_runner_id IS NOT NULL) +
			(depends_on_utility_id IS NOT NULL) = 1
		)
	)`,
	`CREATE TABLE IF NOT EXISTS aggregator_dependencies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		aggregator_id INTEGER NOT NULL REFERENCES aggregators(id) ON DELETE CASCADE,
		depends_on_component_id INTEGER REFERENCES components(id) ON DELETE CASCADE,
		depends_on_aggregator_id INTEGER REFERENCES aggregators(id) ON DELETE CASCADE,
		depends_on_runner_id INTEGER REFERENCES runners(id) ON DELETE CASCADE,
		depends_on_utility_id INTEGER REFERENCES utilities(id) ON DELETE CASCADE,
		CHECK (
			(depends_on_component_id IS NOT NULL) +
			(depends_on_aggregator_id IS NOT NULL) +
			(depends_on_runner_id IS NOT NULL) +
			(depends_on_utility_id IS NOT NULL) = 1
		)
	)`,
	`CREATE TABLE IF NOT EXISTS runner_dependencies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		runner_id INTEGER NOT NULL REFERENCES runners(id) ON DELETE CASCADE,
		depends_on_component_id INTEGER REFERENCES components(id) ON DELETE CASCADE,
		depends_on_aggregator_id INTEGER REFERENCES aggregators(id) ON DELETE CASCADE,
		depends_on_runner_id INTEGER REFERENCES runners(id) ON DELETE CASCADE,
		depends_on_utility_id INTEGER REFERENCES utilities(id) ON DELETE CASCADE,
		CHECK (
			(depends_on_component_id IS NOT NULL) +
			(depends_on_aggregator_id IS NOT NULL) +
			(depends_on_runner_id IS NOT NULL) +
			(depends_on_utility_id IS NOT NULL) = 1
		)
	)`,
	`CREATE TABLE IF NOT EXISTS utility_dependencies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		utility_id INTEGER NOT NULL REFERENCES utilities(id) ON DELETE CASCADE,
		depends_on_component_id INTEGER REFERENCES components(id) ON DELETE CASCADE,
		depends_on_aggregator_id INTEGER REFERENCES aggregators(id) ON DELETE CASCADE,
		depends_on_runner_id INTEGER REFERENCES runners(id) ON DELETE CASCADE,
		depends_on_utility_id INTEGER REFERENCES utilities(id) ON DELETE CASCADE,
		CHECK (
			(depends_on_component_id IS NOT NULL) +
			(depends_on_aggregator_id IS NOT NULL) +
			(depends_on_runner_id IS NOT NULL) +
			(depends_on_utility_id IS NOT NULL) = 1
		)
	)`,
	`CREATE TABLE IF NOT EXISTS component_external_packages (
		component_id INTEGER NOT NULL REFERENCES components(id) ON DELETE CASCADE,
		external_package_id INTEGER NOT NULL REFERENCES external_packages(id) ON DELETE CASCADE,
		PRIMARY KEY (component_id, external_package_id)
	)`,
	`CREATE TABLE IF NOT EXISTS component_locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rig_id INTEGER NOT NULL REFERENCES rig_metadata(id) ON DELETE CASCADE,
		component_id INTEGER NOT NULL REFERENCES components(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		action TEXT NOT NULL,
		evidence_id INTEGER REFERENCES evidence(id)
	)`,
	`CREATE TABLE IF NOT EXISTS component_locations_rel (
		location_id INTEGER NOT NULL REFERENCES component_locations(id) ON DELETE CASCADE,
		source_location_id INTEGER NOT NULL REFERENCES component_locations(id) ON DELETE CASCADE,
		PRIMARY KEY (location_id, source_location_id)
	)`,
	`CREATE TABLE IF NOT EXISTS component_source_files (
		component_id INTEGER NOT NULL REFERENCES components(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		PRIMARY KEY (component_id, path)
	)`,
	`CREATE TABLE IF NOT EXISTS test_source_files (
		test_id INTEGER NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		PRIMARY KEY (test_id, path)
	)`,
	`CREATE TABLE IF NOT EXISTS test_components (
		test_id INTEGER NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
		component_id INTEGER NOT NULL REFERENCES components(id) ON DELETE CASCADE,
		PRIMARY KEY (test_id, component_id)
	)`,
}
