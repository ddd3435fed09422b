package worker

import (
	"time"

	"github.com/rino-1830/discord-live-scribe/internal/config"
	"github.com/rino-1830/discord-live-scribe/internal/metrics"
	"github.com/rino-1830/discord-live-scribe/internal/stream"
	"github.com/rino-1830/discord-live-scribe/internal/transcriber"
	"github.com/rino-1830/discord-live-scribe/internal/transcript"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Worker, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[stream.Log](i)
		cursors := do.MustInvoke[stream.CursorStore](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		sink := do.MustInvoke[transcript.Sink](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return New(log, cursors, stt, sink, m, Options{
			StreamName:   cfg.AudioStreamName,
			ReadBlock:    time.Duration(cfg.ReadBlockMillis) * time.Millisecond,
			PollBackoff:  time.Duration(cfg.PollBackoffMillis) * time.Millisecond,
			MaxAttempts:  cfg.TranscribeMaxAttempts,
			RetryBackoff: time.Duration(cfg.TranscribeRetryBackoffMillis) * time.Millisecond,
		}), nil
	})
}
