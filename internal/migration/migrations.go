package migration

// getAllMigrations retorna todas as migrações disponíveis
func getAllMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_learning_graph_tables",
			Up: `
				-- Tópicos de estudo
				CREATE TABLE IF NOT EXISTS topics (
					id UUID PRIMARY KEY,
					title VARCHAR(200) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					created_by TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ DEFAULT NOW()
				);

				-- Nós de aprendizado
				CREATE TABLE IF NOT EXISTS nodes (
					id UUID PRIMARY KEY,
					topic_id UUID NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
					title VARCHAR(200) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					created_by TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_nodes_topic ON nodes(topic_id);

				-- Workflows dos usuários
				CREATE TABLE IF NOT EXISTS workflows (
					id UUID PRIMARY KEY,
					user_id TEXT NOT NULL,
					title VARCHAR(200) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ DEFAULT NOW(),
					updated_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_workflows_user ON workflows(user_id);

				CREATE TABLE IF NOT EXISTS workflow_nodes (
					workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
					node_id UUID NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
					position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
					position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
					sort_order INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (workflow_id, node_id)
				);

				CREATE TABLE IF NOT EXISTS workflow_edges (
					id UUID PRIMARY KEY,
					workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
					source_node_id UUID NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
					target_node_id UUID NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
					is_valid BOOLEAN,
					validation_reason TEXT NOT NULL DEFAULT ''
				);

				CREATE INDEX IF NOT EXISTS idx_edges_workflow ON workflow_edges(workflow_id);
				CREATE INDEX IF NOT EXISTS idx_edges_pair ON workflow_edges(source_node_id, target_node_id);
			`,
			Down: `
				DROP TABLE IF EXISTS workflow_edges;
				DROP TABLE IF EXISTS workflow_nodes;
				DROP TABLE IF EXISTS workflows;
				DROP TABLE IF EXISTS nodes;
				DROP TABLE IF EXISTS topics;
			`,
		},
		{
			Version: 2,
			Name:    "create_node_pair_validations",
			Up: `
				-- Cache durável de vereditos por par de títulos canonizados
				CREATE TABLE IF NOT EXISTS node_pair_validations (
					source_name TEXT NOT NULL,
					target_name TEXT NOT NULL,
					is_valid BOOLEAN NOT NULL,
					reason TEXT NOT NULL DEFAULT '',
					recommendation TEXT,
					created_at TIMESTAMPTZ DEFAULT NOW(),
					updated_at TIMESTAMPTZ DEFAULT NOW(),
					PRIMARY KEY (source_name, target_name)
				);
			`,
			Down: `DROP TABLE IF EXISTS node_pair_validations;`,
		},
		{
			Version: 3,
			Name:    "create_quiz_tables",
			Up: `
				CREATE TABLE IF NOT EXISTS materials (
					id UUID PRIMARY KEY,
					node_id UUID REFERENCES nodes(id) ON DELETE SET NULL,
					title VARCHAR(200) NOT NULL,
					created_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS material_pages (
					material_id UUID NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
					page_number INTEGER NOT NULL,
					title TEXT NOT NULL DEFAULT '',
					content TEXT NOT NULL,
					PRIMARY KEY (material_id, page_number)
				);

				CREATE TABLE IF NOT EXISTS quiz_questions (
					id UUID PRIMARY KEY,
					material_id UUID NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
					page_number INTEGER NOT NULL,
					question TEXT NOT NULL,
					options JSONB NOT NULL,
					correct_index INTEGER NOT NULL CHECK (correct_index BETWEEN 0 AND 3),
					explanation TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ DEFAULT NOW(),
					UNIQUE (material_id, page_number)
				);

				-- Perfis: espelho mínimo dos usuários do provedor
				CREATE TABLE IF NOT EXISTS profiles (
					id TEXT PRIMARY KEY,
					quiz_scores JSONB NOT NULL DEFAULT '{}'::jsonb,
					updated_at TIMESTAMPTZ DEFAULT NOW()
				);
			`,
			Down: `
				DROP TABLE IF EXISTS quiz_questions;
				DROP TABLE IF EXISTS material_pages;
				DROP TABLE IF EXISTS materials;
				DROP TABLE IF EXISTS profiles;
			`,
		},
		{
			Version: 4,
			Name:    "create_calendar_credentials",
			Up: `
				-- Tokens OAuth do Google Calendar (cifrados pela aplicação)
				CREATE TABLE IF NOT EXISTS calendar_credentials (
					user_id TEXT PRIMARY KEY,
					access_token BYTEA NOT NULL,
					refresh_token BYTEA,
					expiry TIMESTAMPTZ,
					updated_at TIMESTAMPTZ DEFAULT NOW()
				);
			`,
			Down: `DROP TABLE IF EXISTS calendar_credentials;`,
		},
	}
}
