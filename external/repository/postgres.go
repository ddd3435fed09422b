package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rino-1830/discord-live-scribe/internal/repository"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) repository.TranscriptStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertTranscript(ctx context.Context, input repository.InsertTranscriptInput) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transcripts (session_id, entry_id, speaker_id, kind, content, transcribed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (entry_id) DO NOTHING`,
		input.SessionID, input.EntryID, input.SpeakerID, input.Kind, input.Content, input.TranscribedAt)
	return err
}
