package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rino-1830/discord-live-scribe/internal/webhook"
)

func testPayload() webhook.ResultPayload {
	return webhook.ResultPayload{
		EntryID:       "3-0",
		SessionID:     "session-1",
		SpeakerID:     "42",
		Kind:          "live",
		Text:          "hello world",
		TranscribedAt: time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC),
	}
}

func TestSendResult_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendResult(context.Background(), testPayload()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendResult_Success(t *testing.T) {
	var got map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if mediaType := r.Header.Get("Content-Type"); mediaType != "application/json" {
			t.Fatalf("unexpected content type: %s", mediaType)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendResult(context.Background(), testPayload()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got["entry_id"] != "3-0" {
		t.Fatalf("unexpected entry_id: %v", got["entry_id"])
	}
	if got["speaker_id"] != "42" {
		t.Fatalf("unexpected speaker_id: %v", got["speaker_id"])
	}
	if got["kind"] != "live" {
		t.Fatalf("unexpected kind: %v", got["kind"])
	}
	if got["text"] != "hello world" {
		t.Fatalf("unexpected text: %v", got["text"])
	}
}

func TestSendResult_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendResult(context.Background(), testPayload()); err == nil {
		t.Fatal("expected error for non-success status")
	}
}
