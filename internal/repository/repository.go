package repository

import (
	"context"
	"time"
)

type InsertTranscriptInput struct {
	SessionID     string
	EntryID       string
	SpeakerID     string
	Kind          string
	Content       string
	TranscribedAt time.Time
}

type TranscriptStore interface {
	InsertTranscript(ctx context.Context, input InsertTranscriptInput) error
}
