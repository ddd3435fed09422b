package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE transcript_kind AS ENUM ('live', 'summary'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS transcripts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		session_id TEXT NOT NULL DEFAULT '',
		entry_id TEXT NOT NULL,
		speaker_id TEXT NOT NULL,
		kind transcript_kind NOT NULL DEFAULT 'live',
		content TEXT NOT NULL,
		transcribed_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(entry_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transcripts_session ON transcripts (session_id, transcribed_at)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
