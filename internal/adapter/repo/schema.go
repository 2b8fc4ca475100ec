package repo

import "context"

// Schema creates the tables the service needs. Applied idempotently at
// startup; production deployments may manage the same DDL via their own
// migration tooling instead.
const Schema = `
CREATE TABLE IF NOT EXISTS ads (
    id               TEXT PRIMARY KEY,
    owner_email      TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending',
    video_status     TEXT NOT NULL DEFAULT 'absent',
    description      TEXT NOT NULL DEFAULT '',
    size             TEXT NOT NULL DEFAULT '',
    source_image_url TEXT NOT NULL DEFAULT '',
    result_image_url TEXT NOT NULL DEFAULT '',
    video_url        TEXT NOT NULL DEFAULT '',
    prompt_plan      JSONB NOT NULL DEFAULT '{}'::jsonb,
    failure_reason   TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ads_owner_email ON ads (owner_email, created_at DESC);

CREATE TABLE IF NOT EXISTS users (
    id         TEXT PRIMARY KEY,
    email      TEXT NOT NULL UNIQUE,
    credits    INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema applies the schema against the given connection.
func EnsureSchema(ctx context.Context, db Querier) error {
	_, err := db.Exec(ctx, Schema)
	return err
}
