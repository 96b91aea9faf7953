package database

// migration is one additive, idempotent schema change. Migrations only
// ever add; nothing here ever drops or rewrites a prior version's tables.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS tasks (
				id              TEXT PRIMARY KEY,
				title           TEXT NOT NULL,
				kind            TEXT NOT NULL,
				status          TEXT NOT NULL DEFAULT 'active',
				stock_symbols   TEXT NOT NULL DEFAULT '[]',
				tags            TEXT,
				schedule_config TEXT,
				agent_plan      TEXT,
				created_at      TEXT NOT NULL,
				updated_at      TEXT NOT NULL,
				completed_at    TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

			CREATE TABLE IF NOT EXISTS alert_rules (
				id             TEXT PRIMARY KEY,
				task_id        TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
				symbol         TEXT NOT NULL,
				alert_type     TEXT NOT NULL,
				condition_json TEXT NOT NULL,
				active         INTEGER NOT NULL DEFAULT 1,
				created_at     TEXT NOT NULL,
				triggered_at   TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_alert_rules_active ON alert_rules(active);

			CREATE TABLE IF NOT EXISTS indicators (
				id                  TEXT PRIMARY KEY,
				task_id             TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
				stock_symbols       TEXT NOT NULL,
				name                TEXT NOT NULL,
				formula_source      TEXT NOT NULL,
				is_active           INTEGER NOT NULL DEFAULT 1,
				check_interval_secs INTEGER NOT NULL DEFAULT 60,
				market_hours_only   INTEGER NOT NULL DEFAULT 1,
				last_checked        TEXT,
				last_signal         TEXT,
				created_at          TEXT NOT NULL,
				updated_at          TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_indicators_enabled ON indicators(is_active);

			CREATE TABLE IF NOT EXISTS watchlist_items (
				id         TEXT PRIMARY KEY,
				symbol     TEXT NOT NULL,
				name       TEXT NOT NULL,
				note       TEXT,
				created_at TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS schedule_logs (
				id           TEXT PRIMARY KEY,
				task_id      TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
				executed_at  TEXT NOT NULL,
				status       TEXT NOT NULL,
				step_results TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_schedule_logs_task_executed ON schedule_logs(task_id, executed_at);

			CREATE TABLE IF NOT EXISTS messages (
				id         TEXT PRIMARY KEY,
				task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
				symbol     TEXT NOT NULL,
				body       TEXT NOT NULL,
				created_at TEXT NOT NULL,
				read       INTEGER NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS capture_sessions (
				id         TEXT PRIMARY KEY,
				task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
				started_at TEXT NOT NULL,
				ended_at   TEXT,
				path       TEXT
			);

			CREATE TABLE IF NOT EXISTS user_profile (
				key   TEXT PRIMARY KEY,
				value TEXT
			);
		`,
	},
	{
		// knowledge is a plain table here; its FTS5 shadow index lives in
		// a side database opened with the CGO sqlite3 driver (internal/store/fts.go)
		// since modernc.org/sqlite's FTS5 support is incomplete.
		version: 2,
		sql: `
			CREATE TABLE IF NOT EXISTS knowledge (
				id         TEXT PRIMARY KEY,
				title      TEXT NOT NULL,
				content    TEXT NOT NULL,
				created_at TEXT NOT NULL
			);
		`,
	},
}
