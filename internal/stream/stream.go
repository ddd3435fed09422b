package stream

import (
	"context"
	"errors"
	"time"
)

const Beginning = "0-0"

const (
	FieldSpeakerID = "speaker_id"
	FieldPCM       = "pcm"
	FieldKind      = "kind"
	FieldSessionID = "session_id"
	FieldChannelID = "channel_id"
)

var ErrUnavailable = errors.New("stream service unavailable")

type Entry struct {
	ID     string
	Fields map[string][]byte
}

type Log interface {
	Append(ctx context.Context, stream string, fields map[string][]byte) (id string, err error)
	Read(ctx context.Context, stream, cursor string, block time.Duration, count int64) (nextCursor string, entry *Entry, err error)
}
