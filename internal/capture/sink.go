package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/rino-1830/discord-live-scribe/internal/metrics"
	"github.com/rino-1830/discord-live-scribe/internal/stream"
	"github.com/rino-1830/discord-live-scribe/internal/transcript"
)

type Sink struct {
	log        stream.Log
	metrics    *metrics.Metrics
	streamName string
	sessionID  string
	channelID  string

	mu      sync.Mutex
	buffers map[uint64][][]byte
}

func NewSink(log stream.Log, m *metrics.Metrics, streamName, sessionID, channelID string) *Sink {
	return &Sink{
		log:        log,
		metrics:    m,
		streamName: streamName,
		sessionID:  sessionID,
		channelID:  channelID,
		buffers:    make(map[uint64][][]byte),
	}
}

func (s *Sink) OnFrame(ctx context.Context, speakerID uint64, pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	if _, err := s.log.Append(ctx, s.streamName, s.entryFields(speakerID, pcm, transcript.KindLive)); err != nil {
		s.metrics.AppendFailures.Inc()
		return fmt.Errorf("append live frame for speaker %d: %w", speakerID, err)
	}
	s.metrics.FramesAppended.Inc()
	frame := append([]byte(nil), pcm...)
	s.mu.Lock()
	s.buffers[speakerID] = append(s.buffers[speakerID], frame)
	s.mu.Unlock()
	return nil
}

func (s *Sink) OnSessionEnd(ctx context.Context) error {
	s.mu.Lock()
	buffers := s.buffers
	s.buffers = make(map[uint64][][]byte)
	s.mu.Unlock()

	speakers := make([]uint64, 0, len(buffers))
	for speakerID := range buffers {
		speakers = append(speakers, speakerID)
	}
	slices.Sort(speakers)

	var errs []error
	for _, speakerID := range speakers {
		pcm := concatFrames(buffers[speakerID])
		if len(pcm) == 0 {
			continue
		}
		if _, err := s.log.Append(ctx, s.streamName, s.entryFields(speakerID, pcm, transcript.KindSummary)); err != nil {
			s.metrics.AppendFailures.Inc()
			errs = append(errs, fmt.Errorf("append summary for speaker %d: %w", speakerID, err))
			continue
		}
		s.metrics.SummaryEntriesAppended.Inc()
		slog.Info("session summary appended", "session_id", s.sessionID, "speaker_id", speakerID, "frames", len(buffers[speakerID]), "pcm_bytes", len(pcm))
	}
	return errors.Join(errs...)
}

func (s *Sink) BufferedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, frames := range s.buffers {
		for _, f := range frames {
			total += len(f)
		}
	}
	return total
}

func (s *Sink) entryFields(speakerID uint64, pcm []byte, kind transcript.Kind) map[string][]byte {
	fields := map[string][]byte{
		stream.FieldSpeakerID: []byte(strconv.FormatUint(speakerID, 10)),
		stream.FieldPCM:       pcm,
		stream.FieldKind:      []byte(kind),
	}
	if s.sessionID != "" {
		fields[stream.FieldSessionID] = []byte(s.sessionID)
	}
	if s.channelID != "" {
		fields[stream.FieldChannelID] = []byte(s.channelID)
	}
	return fields
}

func concatFrames(frames [][]byte) []byte {
	total := 0
	for _, f := range frames {
		total += len(f)
	}
	out := make([]byte, 0, total)
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}
