package webhook

import (
	"context"
	"time"
)

type ResultPayload struct {
	EntryID       string    `json:"entry_id"`
	SessionID     string    `json:"session_id,omitempty"`
	SpeakerID     string    `json:"speaker_id"`
	Kind          string    `json:"kind"`
	Text          string    `json:"text"`
	TranscribedAt time.Time `json:"transcribed_at"`
}

type Sender interface {
	SendResult(ctx context.Context, payload ResultPayload) error
}
