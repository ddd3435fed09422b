package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rino-1830/discord-live-scribe/internal/metrics"
	"github.com/rino-1830/discord-live-scribe/internal/stream"
	"github.com/rino-1830/discord-live-scribe/internal/transcriber"
	"github.com/rino-1830/discord-live-scribe/internal/transcript"
)

const readBatchCount = 1

type Options struct {
	StreamName   string
	ReadBlock    time.Duration
	PollBackoff  time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

type Worker struct {
	log     stream.Log
	cursors stream.CursorStore
	stt     transcriber.Transcriber
	sink    transcript.Sink
	metrics *metrics.Metrics
	opts    Options
}

func New(log stream.Log, cursors stream.CursorStore, stt transcriber.Transcriber, sink transcript.Sink, m *metrics.Metrics, opts Options) *Worker {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &Worker{
		log:     log,
		cursors: cursors,
		stt:     stt,
		sink:    sink,
		metrics: m,
		opts:    opts,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	cursor := w.loadCursor(ctx)
	slog.Info("transcription worker started", "stream", w.opts.StreamName, "cursor", cursor)
	defer func() {
		slog.Info("transcription worker stopped", "stream", w.opts.StreamName, "cursor", cursor)
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		next, entry, err := w.log.Read(ctx, w.opts.StreamName, cursor, w.opts.ReadBlock, readBatchCount)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("failed to read stream", "stream", w.opts.StreamName, "cursor", cursor, "error", err)
			if !w.wait(ctx, w.opts.PollBackoff) {
				return nil
			}
			continue
		}
		if entry == nil {
			if !w.wait(ctx, w.opts.PollBackoff) {
				return nil
			}
			continue
		}

		cursor = next
		if err := w.cursors.Save(ctx, cursor); err != nil {
			slog.Warn("failed to save cursor", "cursor", cursor, "error", err)
		}

		w.processEntry(ctx, entry)
	}
}

func (w *Worker) loadCursor(ctx context.Context) string {
	cursor, err := w.cursors.Load(ctx)
	if err != nil {
		slog.Warn("failed to load cursor; starting from beginning", "error", err)
		return stream.Beginning
	}
	if cursor == "" {
		return stream.Beginning
	}
	return cursor
}

func (w *Worker) processEntry(ctx context.Context, entry *stream.Entry) {
	w.metrics.EntriesRead.Inc()

	chunk, kind, err := decodeEntry(entry)
	if err != nil {
		w.metrics.MalformedEntries.Inc()
		slog.Warn("skipping malformed stream entry", "entry_id", entry.ID, "error", err)
		return
	}

	text, err := w.transcribe(ctx, chunk.PCM)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.metrics.TranscriptionFailures.Inc()
		slog.Error("transcription failed; skipping entry",
			"entry_id", entry.ID,
			"speaker_id", chunk.SpeakerID,
			"pcm_bytes", len(chunk.PCM),
			"error", err)
		return
	}

	result := transcript.Result{
		EntryID:       entry.ID,
		SessionID:     string(entry.Fields[stream.FieldSessionID]),
		ChannelID:     string(entry.Fields[stream.FieldChannelID]),
		SpeakerID:     chunk.SpeakerID,
		Kind:          kind,
		Text:          text,
		TranscribedAt: time.Now(),
	}
	if err := w.sink.Publish(ctx, result); err != nil {
		slog.Error("failed to publish transcription result", "entry_id", entry.ID, "error", err)
		return
	}
	w.metrics.ResultsPublished.Inc()
}

func (w *Worker) transcribe(ctx context.Context, pcm []byte) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= w.opts.MaxAttempts; attempt++ {
		started := time.Now()
		text, err := w.stt.Transcribe(ctx, pcm)
		if err == nil {
			w.metrics.TranscribeDuration.Observe(time.Since(started).Seconds())
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < w.opts.MaxAttempts {
			slog.Warn("transcription attempt failed; retrying",
				"attempt", attempt,
				"max_attempts", w.opts.MaxAttempts,
				"error", err)
			if !w.wait(ctx, w.opts.RetryBackoff) {
				break
			}
		}
	}
	return "", lastErr
}

func (w *Worker) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type audioChunk struct {
	SpeakerID uint64
	PCM       []byte
}

func decodeEntry(entry *stream.Entry) (audioChunk, transcript.Kind, error) {
	rawSpeaker, ok := entry.Fields[stream.FieldSpeakerID]
	if !ok || len(rawSpeaker) == 0 {
		return audioChunk{}, "", fmt.Errorf("missing %s field", stream.FieldSpeakerID)
	}
	speakerID, err := strconv.ParseUint(string(rawSpeaker), 10, 64)
	if err != nil {
		return audioChunk{}, "", fmt.Errorf("parse %s: %w", stream.FieldSpeakerID, err)
	}

	pcm, ok := entry.Fields[stream.FieldPCM]
	if !ok || len(pcm) == 0 {
		return audioChunk{}, "", fmt.Errorf("missing %s field", stream.FieldPCM)
	}

	kind := transcript.KindLive
	if rawKind, ok := entry.Fields[stream.FieldKind]; ok {
		switch transcript.Kind(rawKind) {
		case transcript.KindLive:
			kind = transcript.KindLive
		case transcript.KindSummary:
			kind = transcript.KindSummary
		default:
			return audioChunk{}, "", fmt.Errorf("unknown %s value %q", stream.FieldKind, rawKind)
		}
	}

	return audioChunk{SpeakerID: speakerID, PCM: pcm}, kind, nil
}
