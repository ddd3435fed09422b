package stream

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type MemoryLog struct {
	mu      sync.Mutex
	streams map[string]*memoryStream
}

type memoryStream struct {
	entries []Entry
	lastSeq uint64
	signal  chan struct{}
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{streams: make(map[string]*memoryStream)}
}

func (l *MemoryLog) Append(ctx context.Context, stream string, fields map[string][]byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.streamLocked(stream)
	st.lastSeq++
	id := fmt.Sprintf("%d-0", st.lastSeq)
	st.entries = append(st.entries, Entry{ID: id, Fields: copyFields(fields)})
	close(st.signal)
	st.signal = make(chan struct{})
	return id, nil
}

func (l *MemoryLog) Read(ctx context.Context, stream, cursor string, block time.Duration, count int64) (string, *Entry, error) {
	_ = count
	after, err := parseStreamID(cursor)
	if err != nil {
		return cursor, nil, err
	}
	var timeout <-chan time.Time
	if block > 0 {
		timer := time.NewTimer(block)
		defer timer.Stop()
		timeout = timer.C
	}
	for {
		l.mu.Lock()
		st := l.streamLocked(stream)
		idx := sort.Search(len(st.entries), func(i int) bool {
			id, parseErr := parseStreamID(st.entries[i].ID)
			return parseErr == nil && id.after(after)
		})
		if idx < len(st.entries) {
			entry := Entry{ID: st.entries[idx].ID, Fields: copyFields(st.entries[idx].Fields)}
			l.mu.Unlock()
			return entry.ID, &entry, nil
		}
		signal := st.signal
		l.mu.Unlock()
		select {
		case <-ctx.Done():
			return cursor, nil, ctx.Err()
		case <-timeout:
			return cursor, nil, nil
		case <-signal:
		}
	}
}

func (l *MemoryLog) streamLocked(name string) *memoryStream {
	st, ok := l.streams[name]
	if !ok {
		st = &memoryStream{signal: make(chan struct{})}
		l.streams[name] = st
	}
	return st
}

type streamID struct {
	ms  uint64
	seq uint64
}

func (a streamID) after(b streamID) bool {
	if a.ms != b.ms {
		return a.ms > b.ms
	}
	return a.seq > b.seq
}

func parseStreamID(s string) (streamID, error) {
	msPart, seqPart, ok := strings.Cut(s, "-")
	if !ok {
		return streamID{}, fmt.Errorf("invalid stream id %q", s)
	}
	ms, err := strconv.ParseUint(msPart, 10, 64)
	if err != nil {
		return streamID{}, fmt.Errorf("invalid stream id %q: %w", s, err)
	}
	seq, err := strconv.ParseUint(seqPart, 10, 64)
	if err != nil {
		return streamID{}, fmt.Errorf("invalid stream id %q: %w", s, err)
	}
	return streamID{ms: ms, seq: seq}, nil
}

func copyFields(fields map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(fields))
	for k, v := range fields {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
