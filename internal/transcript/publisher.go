package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rino-1830/discord-live-scribe/internal/config"
	"github.com/rino-1830/discord-live-scribe/internal/discord"
	"github.com/rino-1830/discord-live-scribe/internal/repository"
	"github.com/rino-1830/discord-live-scribe/internal/webhook"
)

type Publisher struct {
	cfg     *config.Config
	store   repository.TranscriptStore
	webhook webhook.Sender
	discord discord.Client
}

func NewPublisher(cfg *config.Config, store repository.TranscriptStore, sender webhook.Sender, dc discord.Client) *Publisher {
	return &Publisher{
		cfg:     cfg,
		store:   store,
		webhook: sender,
		discord: dc,
	}
}

func (p *Publisher) Publish(ctx context.Context, result Result) error {
	slog.Info("transcription result",
		"entry_id", result.EntryID,
		"session_id", result.SessionID,
		"speaker_id", result.SpeakerID,
		"kind", result.Kind,
		"text", result.Text)

	if strings.TrimSpace(result.Text) == "" {
		return nil
	}

	var errs []error
	if err := p.store.InsertTranscript(ctx, repository.InsertTranscriptInput{
		SessionID:     result.SessionID,
		EntryID:       result.EntryID,
		SpeakerID:     strconv.FormatUint(result.SpeakerID, 10),
		Kind:          string(result.Kind),
		Content:       result.Text,
		TranscribedAt: result.TranscribedAt,
	}); err != nil {
		errs = append(errs, fmt.Errorf("store transcript for entry %s: %w", result.EntryID, err))
	}

	if err := p.webhook.SendResult(ctx, webhook.ResultPayload{
		EntryID:       result.EntryID,
		SessionID:     result.SessionID,
		SpeakerID:     strconv.FormatUint(result.SpeakerID, 10),
		Kind:          string(result.Kind),
		Text:          result.Text,
		TranscribedAt: result.TranscribedAt,
	}); err != nil {
		errs = append(errs, fmt.Errorf("send webhook for entry %s: %w", result.EntryID, err))
	}

	if p.shouldAnnounce(result) {
		message := fmt.Sprintf("<@%d> %s", result.SpeakerID, result.Text)
		if err := p.discord.SendChannelMessage(result.ChannelID, message); err != nil {
			errs = append(errs, fmt.Errorf("announce transcript for entry %s: %w", result.EntryID, err))
		}
	}

	return errors.Join(errs...)
}

func (p *Publisher) shouldAnnounce(result Result) bool {
	return p.cfg.DiscordAnnounceTranscripts && result.Kind == KindSummary && result.ChannelID != ""
}
