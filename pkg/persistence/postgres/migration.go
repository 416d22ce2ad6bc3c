package postgres

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow definitions. The graph is stored as JSONB documents; the
			-- engine never queries individual nodes, it always loads the whole
			-- definition.
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT FALSE,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				variables JSONB,
				execution_count BIGINT NOT NULL DEFAULT 0,
				error_count BIGINT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_enabled ON workflows(enabled);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
		`,
		2: `
			-- Execution records. Each run carries its own frozen graph snapshot
			-- so workflow edits never affect runs already in flight.
			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				current_node_id VARCHAR(255) NOT NULL DEFAULT '',
				variables JSONB,
				error_message TEXT NOT NULL DEFAULT '',
				cancel_requested BOOLEAN NOT NULL DEFAULT FALSE,
				wait_until TIMESTAMP WITH TIME ZONE,
				wait_expression TEXT NOT NULL DEFAULT '',
				snapshot_nodes JSONB NOT NULL DEFAULT '[]',
				snapshot_edges JSONB NOT NULL DEFAULT '[]'
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_wait_until ON executions(wait_until);

			-- Append-only audit trail. One row per visited node, inserted as
			-- the engine goes, never updated.
			CREATE TABLE execution_logs (
				id BIGSERIAL PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				logged_at TIMESTAMP WITH TIME ZONE NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				action VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL,
				message TEXT NOT NULL DEFAULT '',
				data JSONB
			);

			CREATE INDEX idx_execution_logs_execution_id ON execution_logs(execution_id);
		`,
	}
}
