package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rino-1830/discord-live-scribe/internal/metrics"
	"github.com/rino-1830/discord-live-scribe/internal/stream"
	"github.com/rino-1830/discord-live-scribe/internal/transcript"
)

const testStreamName = "audio"

type mockTranscriber struct {
	mu        sync.Mutex
	calls     [][]byte
	failFirst int
	failPCM   string
}

func (m *mockTranscriber) Transcribe(_ context.Context, pcm []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]byte(nil), pcm...))
	if m.failFirst > 0 {
		m.failFirst--
		return "", errors.New("speech service is down")
	}
	if m.failPCM != "" && string(pcm) == m.failPCM {
		return "", errors.New("speech service is down")
	}
	return strings.ToUpper(string(pcm)), nil
}

func (m *mockTranscriber) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockSink struct {
	mu         sync.Mutex
	results    []transcript.Result
	failCalls  int
	publishErr error
}

func (m *mockSink) Publish(_ context.Context, result transcript.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	if m.failCalls > 0 {
		m.failCalls--
		return m.publishErr
	}
	return nil
}

func (m *mockSink) resultCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

func (m *mockSink) resultAt(i int) transcript.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[i]
}

func testOptions() Options {
	return Options{
		StreamName:   testStreamName,
		ReadBlock:    50 * time.Millisecond,
		PollBackoff:  5 * time.Millisecond,
		MaxAttempts:  1,
		RetryBackoff: time.Millisecond,
	}
}

func appendEntry(t *testing.T, log stream.Log, speakerID, pcm, sessionID string) string {
	t.Helper()
	fields := map[string][]byte{
		stream.FieldSpeakerID: []byte(speakerID),
		stream.FieldPCM:       []byte(pcm),
		stream.FieldKind:      []byte(transcript.KindLive),
	}
	if sessionID != "" {
		fields[stream.FieldSessionID] = []byte(sessionID)
	}
	id, err := log.Append(context.Background(), testStreamName, fields)
	if err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}
	return id
}

func startWorker(t *testing.T, w *Worker) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()
	return func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected Run to return nil, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not stop after context cancel")
		}
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(message)
}

func TestRun_ConsumesEntriesInOrder(t *testing.T) {
	log := stream.NewMemoryLog()
	sink := &mockSink{}
	w := New(log, stream.NewMemoryCursorStore(), &mockTranscriber{}, sink, metrics.New(), testOptions())

	appendEntry(t, log, "1", "alpha", "session-1")
	appendEntry(t, log, "2", "bravo", "session-1")
	appendEntry(t, log, "3", "charlie", "session-1")

	stop := startWorker(t, w)
	defer stop()

	waitUntil(t, 2*time.Second, func() bool { return sink.resultCount() == 3 }, "worker should publish all three results")

	for i, want := range []string{"ALPHA", "BRAVO", "CHARLIE"} {
		result := sink.resultAt(i)
		if result.Text != want {
			t.Fatalf("expected result %d text %q, got %q", i, want, result.Text)
		}
		if result.SpeakerID != uint64(i+1) {
			t.Fatalf("expected result %d speaker %d, got %d", i, i+1, result.SpeakerID)
		}
		if result.SessionID != "session-1" {
			t.Fatalf("expected result %d session session-1, got %q", i, result.SessionID)
		}
		if result.Kind != transcript.KindLive {
			t.Fatalf("expected result %d kind live, got %q", i, result.Kind)
		}
	}
}

func TestRun_SkipsMalformedEntries(t *testing.T) {
	log := stream.NewMemoryLog()
	stt := &mockTranscriber{}
	sink := &mockSink{}
	m := metrics.New()
	w := New(log, stream.NewMemoryCursorStore(), stt, sink, m, testOptions())

	if _, err := log.Append(context.Background(), testStreamName, map[string][]byte{
		stream.FieldSpeakerID: []byte("42"),
	}); err != nil {
		t.Fatalf("expected append to succeed, got %v", err)
	}
	appendEntry(t, log, "7", "hello", "")

	stop := startWorker(t, w)
	defer stop()

	waitUntil(t, 2*time.Second, func() bool { return sink.resultCount() == 1 }, "worker should publish the valid entry")

	if got := sink.resultAt(0).Text; got != "HELLO" {
		t.Fatalf("expected HELLO, got %q", got)
	}
	if calls := stt.callCount(); calls != 1 {
		t.Fatalf("expected transcriber to be called once, got %d", calls)
	}
	if got := testutil.ToFloat64(m.MalformedEntries); got != 1 {
		t.Fatalf("expected 1 malformed entry, got %v", got)
	}
}

func TestRun_ContinuesAfterTranscriptionFailure(t *testing.T) {
	log := stream.NewMemoryLog()
	stt := &mockTranscriber{failPCM: "broken"}
	sink := &mockSink{}
	m := metrics.New()
	w := New(log, stream.NewMemoryCursorStore(), stt, sink, m, testOptions())

	appendEntry(t, log, "1", "broken", "")
	appendEntry(t, log, "2", "fine", "")

	stop := startWorker(t, w)
	defer stop()

	waitUntil(t, 2*time.Second, func() bool { return sink.resultCount() == 1 }, "worker should skip the failed entry and continue")

	if got := sink.resultAt(0).Text; got != "FINE" {
		t.Fatalf("expected FINE, got %q", got)
	}
	if got := testutil.ToFloat64(m.TranscriptionFailures); got != 1 {
		t.Fatalf("expected 1 transcription failure, got %v", got)
	}
}

func TestRun_RetriesTranscriptionUpToMaxAttempts(t *testing.T) {
	log := stream.NewMemoryLog()
	stt := &mockTranscriber{failFirst: 2}
	sink := &mockSink{}
	opts := testOptions()
	opts.MaxAttempts = 3
	w := New(log, stream.NewMemoryCursorStore(), stt, sink, metrics.New(), opts)

	appendEntry(t, log, "1", "retry me", "")

	stop := startWorker(t, w)
	defer stop()

	waitUntil(t, 2*time.Second, func() bool { return sink.resultCount() == 1 }, "worker should succeed on the third attempt")

	if got := sink.resultAt(0).Text; got != "RETRY ME" {
		t.Fatalf("expected RETRY ME, got %q", got)
	}
	if calls := stt.callCount(); calls != 3 {
		t.Fatalf("expected 3 transcription attempts, got %d", calls)
	}
}

func TestRun_FreshCursorStoreReprocessesFromBeginning(t *testing.T) {
	log := stream.NewMemoryLog()
	appendEntry(t, log, "1", "alpha", "")
	appendEntry(t, log, "2", "bravo", "")

	firstSink := &mockSink{}
	first := New(log, stream.NewMemoryCursorStore(), &mockTranscriber{}, firstSink, metrics.New(), testOptions())
	stopFirst := startWorker(t, first)
	waitUntil(t, 2*time.Second, func() bool { return firstSink.resultCount() == 2 }, "first worker should consume both entries")
	stopFirst()

	secondSink := &mockSink{}
	second := New(log, stream.NewMemoryCursorStore(), &mockTranscriber{}, secondSink, metrics.New(), testOptions())
	stopSecond := startWorker(t, second)
	defer stopSecond()

	waitUntil(t, 2*time.Second, func() bool { return secondSink.resultCount() == 2 }, "second worker should reprocess both entries")
	if secondSink.resultAt(0).EntryID != firstSink.resultAt(0).EntryID {
		t.Fatalf("expected reprocessing to start from the first entry")
	}
}

func TestRun_ResumesFromPersistedCursor(t *testing.T) {
	log := stream.NewMemoryLog()
	cursors := stream.NewMemoryCursorStore()
	appendEntry(t, log, "1", "alpha", "")
	appendEntry(t, log, "2", "bravo", "")

	firstSink := &mockSink{}
	first := New(log, cursors, &mockTranscriber{}, firstSink, metrics.New(), testOptions())
	stopFirst := startWorker(t, first)
	waitUntil(t, 2*time.Second, func() bool { return firstSink.resultCount() == 2 }, "first worker should consume both entries")
	stopFirst()

	newEntryID := appendEntry(t, log, "3", "charlie", "")

	secondSink := &mockSink{}
	second := New(log, cursors, &mockTranscriber{}, secondSink, metrics.New(), testOptions())
	stopSecond := startWorker(t, second)
	defer stopSecond()

	waitUntil(t, 2*time.Second, func() bool { return secondSink.resultCount() == 1 }, "second worker should consume only the new entry")
	if got := secondSink.resultAt(0).EntryID; got != newEntryID {
		t.Fatalf("expected entry %s, got %s", newEntryID, got)
	}
	time.Sleep(50 * time.Millisecond)
	if secondSink.resultCount() != 1 {
		t.Fatalf("expected no reprocessed entries, got %d results", secondSink.resultCount())
	}
}

func TestRun_StopsWhenContextCanceled(t *testing.T) {
	log := stream.NewMemoryLog()
	opts := testOptions()
	opts.ReadBlock = 0
	w := New(log, stream.NewMemoryCursorStore(), &mockTranscriber{}, &mockSink{}, metrics.New(), opts)

	stop := startWorker(t, w)
	time.Sleep(20 * time.Millisecond)
	stop()
}

func TestRun_ContinuesAfterPublishFailure(t *testing.T) {
	log := stream.NewMemoryLog()
	sink := &mockSink{failCalls: 1, publishErr: errors.New("downstream is down")}
	m := metrics.New()
	w := New(log, stream.NewMemoryCursorStore(), &mockTranscriber{}, sink, m, testOptions())

	appendEntry(t, log, "1", "alpha", "")
	appendEntry(t, log, "2", "bravo", "")

	stop := startWorker(t, w)
	defer stop()

	waitUntil(t, 2*time.Second, func() bool { return sink.resultCount() == 2 }, "worker should keep consuming after a publish failure")
	if got := testutil.ToFloat64(m.ResultsPublished); got != 1 {
		t.Fatalf("expected 1 published result, got %v", got)
	}
}

func TestDecodeEntry_DefaultsToLiveKind(t *testing.T) {
	entry := &stream.Entry{
		ID: "1-0",
		Fields: map[string][]byte{
			stream.FieldSpeakerID: []byte("42"),
			stream.FieldPCM:       []byte{0x01},
		},
	}

	chunk, kind, err := decodeEntry(entry)
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}
	if chunk.SpeakerID != 42 {
		t.Fatalf("expected speaker 42, got %d", chunk.SpeakerID)
	}
	if kind != transcript.KindLive {
		t.Fatalf("expected kind live, got %q", kind)
	}
}

func TestDecodeEntry_RejectsUnknownKind(t *testing.T) {
	entry := &stream.Entry{
		ID: "1-0",
		Fields: map[string][]byte{
			stream.FieldSpeakerID: []byte("42"),
			stream.FieldPCM:       []byte{0x01},
			stream.FieldKind:      []byte("mystery"),
		},
	}

	if _, _, err := decodeEntry(entry); err == nil {
		t.Fatalf("expected unknown kind to be rejected")
	}
}

func TestDecodeEntry_RejectsMissingSpeaker(t *testing.T) {
	entry := &stream.Entry{
		ID:     "1-0",
		Fields: map[string][]byte{stream.FieldPCM: []byte{0x01}},
	}

	if _, _, err := decodeEntry(entry); err == nil {
		t.Fatalf("expected missing speaker to be rejected")
	}
}

func TestDecodeEntry_RejectsNonNumericSpeaker(t *testing.T) {
	entry := &stream.Entry{
		ID: "1-0",
		Fields: map[string][]byte{
			stream.FieldSpeakerID: []byte("alice"),
			stream.FieldPCM:       []byte{0x01},
		},
	}

	if _, _, err := decodeEntry(entry); err == nil {
		t.Fatalf("expected non-numeric speaker to be rejected")
	}
}
