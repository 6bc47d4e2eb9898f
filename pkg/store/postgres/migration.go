package postgres

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS pipelines (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				definition JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`,
		2: `
			CREATE INDEX IF NOT EXISTS idx_pipelines_created_at ON pipelines (created_at)
		`,
	}
}
