package transcript

import (
	"context"
	"time"
)

type Kind string

const (
	KindLive    Kind = "live"
	KindSummary Kind = "summary"
)

type Result struct {
	EntryID       string
	SessionID     string
	ChannelID     string
	SpeakerID     uint64
	Kind          Kind
	Text          string
	TranscribedAt time.Time
}

type Sink interface {
	Publish(ctx context.Context, result Result) error
}
