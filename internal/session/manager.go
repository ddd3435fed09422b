package session

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rino-1830/discord-live-scribe/internal/audio"
	"github.com/rino-1830/discord-live-scribe/internal/capture"
	"github.com/rino-1830/discord-live-scribe/internal/config"
	"github.com/rino-1830/discord-live-scribe/internal/discord"
	"github.com/rino-1830/discord-live-scribe/internal/metrics"
	"github.com/rino-1830/discord-live-scribe/internal/stream"
)

const (
	stopReasonAllLeft       = "all participants left voice channel"
	stopReasonBotRemoved    = "bot was removed from voice channel"
	stopReasonMaxDuration   = "maximum session duration reached"
	stopReasonAppendFailure = "audio stream append failed"
	stopReasonServerClosed  = "server shutdown"

	sessionFlushTimeout = 15 * time.Second
)

type Manager struct {
	cfg        *config.Config
	log        stream.Log
	discord    discord.Client
	newDecoder audio.DecoderFactory
	metrics    *metrics.Metrics

	maxSessionDuration time.Duration
	botUserID          string

	mu      sync.Mutex
	session *runningSession
}

type runningSession struct {
	id           string
	channelID    string
	voice        discord.VoiceConnection
	sink         *capture.Sink
	decoder      audio.Decoder
	cancel       context.CancelFunc
	participants map[string]bool
	startedAt    time.Time
}

func NewManager(cfg *config.Config, log stream.Log, dc discord.Client, newDecoder audio.DecoderFactory, m *metrics.Metrics) *Manager {
	return &Manager{
		cfg:                cfg,
		log:                log,
		discord:            dc,
		newDecoder:         newDecoder,
		metrics:            m,
		maxSessionDuration: time.Duration(cfg.MaxSessionDurationMin) * time.Minute,
	}
}

func (m *Manager) SetBotUserID(userID string) {
	m.botUserID = userID
}

func (m *Manager) HandleVoiceStateUpdate(event discord.VoiceStateEvent) {
	slog.Info("voice state update received",
		"guild_id", event.GuildID,
		"user_id", event.UserID,
		"before_channel_id", event.BeforeChannelID,
		"after_channel_id", event.AfterChannelID)

	if event.GuildID != m.cfg.DiscordGuildID {
		slog.Info("ignoring voice event for different guild", "event_guild_id", event.GuildID, "configured_guild_id", m.cfg.DiscordGuildID)
		return
	}

	target := m.cfg.DiscordVoiceChannelID
	if event.UserID == m.botUserID {
		if event.BeforeChannelID == target && event.AfterChannelID != target {
			if err := m.stopSession(nil, stopReasonBotRemoved); err != nil {
				slog.Error("failed to stop session", "error", err)
			}
		}
		return
	}

	if event.AfterChannelID == target {
		if !m.shouldCountParticipant(event.UserID, event.UserIsBot) {
			slog.Info("ignoring join from non-participant", "user_id", event.UserID, "user_is_bot", event.UserIsBot)
			return
		}
		if err := m.startSessionOrAddParticipant(event.UserID, event.UserIsBot); err != nil {
			slog.Error("failed to start session", "error", err)
		}
		return
	}
	if event.BeforeChannelID == target {
		if err := m.removeParticipantAndMaybeStop(event.UserID); err != nil {
			slog.Error("failed to stop session", "error", err)
		}
	}
}

func (m *Manager) startSessionOrAddParticipant(userID string, isBot bool) error {
	m.mu.Lock()
	if s := m.session; s != nil {
		s.participants[userID] = isBot
		count := len(s.participants)
		m.mu.Unlock()
		slog.Info("session already active; added participant", "session_id", s.id, "user_id", userID, "participants", count)
		return nil
	}
	m.mu.Unlock()
	return m.startSession(userID, isBot)
}

func (m *Manager) startSession(userID string, isBot bool) error {
	guildID := m.cfg.DiscordGuildID
	channelID := m.cfg.DiscordVoiceChannelID

	voice, err := m.discord.JoinVoiceChannel(guildID, channelID)
	if err != nil {
		slog.Error("failed to join voice channel", "error", err, "guild_id", guildID, "channel_id", channelID)
		return err
	}
	slog.Info("joined voice channel", "guild_id", guildID, "channel_id", channelID)

	sessionID := uuid.NewString()
	sink := capture.NewSink(m.log, m.metrics, m.cfg.AudioStreamName, sessionID, channelID)
	decoder := m.newDecoder()
	ctx, cancel := context.WithCancel(context.Background())

	participants := m.seedParticipants(guildID, channelID)
	participants[userID] = isBot

	m.mu.Lock()
	if existing := m.session; existing != nil {
		existing.participants[userID] = isBot
		m.mu.Unlock()
		cancel()
		decoder.Close()
		_ = voice.Disconnect()
		slog.Info("session started concurrently; added participant instead", "session_id", existing.id, "user_id", userID)
		return nil
	}
	s := &runningSession{
		id:           sessionID,
		channelID:    channelID,
		voice:        voice,
		sink:         sink,
		decoder:      decoder,
		cancel:       cancel,
		participants: participants,
		startedAt:    time.Now(),
	}
	m.session = s
	m.mu.Unlock()

	m.metrics.ActiveSessions.Inc()
	slog.Info("capture session started",
		"session_id", sessionID,
		"guild_id", guildID,
		"channel_id", channelID,
		"participants", len(participants))

	go m.receiveAudio(ctx, s)
	go m.watchSessionDuration(ctx, s)
	return nil
}

func (m *Manager) seedParticipants(guildID, channelID string) map[string]bool {
	participants := make(map[string]bool)
	listed, err := m.discord.ListVoiceChannelParticipants(guildID, channelID)
	if err != nil {
		slog.Warn("failed to list voice channel participants", "error", err, "guild_id", guildID, "channel_id", channelID)
		return participants
	}
	for _, p := range listed {
		if p.UserID == m.botUserID {
			continue
		}
		participants[p.UserID] = p.IsBot
	}
	return participants
}

func (m *Manager) receiveAudio(ctx context.Context, s *runningSession) {
	var receivedPackets int64
	s.voice.ReceiveAudio(func(userID string, opusPacket []byte) {
		if ctx.Err() != nil {
			return
		}
		n := atomic.AddInt64(&receivedPackets, 1)
		if n == 1 || n%500 == 0 {
			slog.Info("received opus packet", "session_id", s.id, "user_id", userID, "packet_bytes", len(opusPacket), "total_packets", n)
		}
		speakerID, err := strconv.ParseUint(userID, 10, 64)
		if err != nil {
			slog.Warn("dropping packet from unresolved speaker", "session_id", s.id, "user_id", userID)
			return
		}
		pcm, err := s.decoder.Decode(speakerID, opusPacket)
		if err != nil {
			slog.Warn("failed to decode opus packet", "error", err, "session_id", s.id, "speaker_id", speakerID)
			return
		}
		if len(pcm) == 0 {
			return
		}
		if err := s.sink.OnFrame(ctx, speakerID, pcm); err != nil {
			slog.Error("failed to append audio frame; stopping session", "error", err, "session_id", s.id, "speaker_id", speakerID)
			go func() {
				if err := m.stopSession(s, stopReasonAppendFailure); err != nil {
					slog.Error("failed to stop session", "error", err, "session_id", s.id)
				}
			}()
		}
	})
}

func (m *Manager) removeParticipantAndMaybeStop(userID string) error {
	m.mu.Lock()
	s := m.session
	if s == nil {
		m.mu.Unlock()
		return nil
	}
	delete(s.participants, userID)
	remaining := 0
	for id, isBot := range s.participants {
		if m.shouldCountParticipant(id, isBot) {
			remaining++
		}
	}
	m.mu.Unlock()

	if remaining > 0 {
		slog.Info("participant left", "session_id", s.id, "user_id", userID, "remaining", remaining)
		return nil
	}
	return m.stopSession(s, stopReasonAllLeft)
}

func (m *Manager) watchSessionDuration(ctx context.Context, s *runningSession) {
	if m.maxSessionDuration <= 0 {
		return
	}
	timer := time.NewTimer(m.maxSessionDuration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		slog.Warn("maximum session duration reached; stopping session", "session_id", s.id, "max_duration", m.maxSessionDuration)
		if err := m.stopSession(s, stopReasonMaxDuration); err != nil {
			slog.Error("failed to stop session", "error", err, "session_id", s.id)
		}
	}
}

func (m *Manager) stopSession(target *runningSession, reason string) error {
	m.mu.Lock()
	s := m.session
	if s == nil || (target != nil && s != target) {
		m.mu.Unlock()
		return nil
	}
	m.session = nil
	m.mu.Unlock()

	m.metrics.ActiveSessions.Dec()
	slog.Info("stopping capture session",
		"session_id", s.id,
		"channel_id", s.channelID,
		"reason", reason,
		"duration_sec", int(time.Since(s.startedAt).Seconds()),
		"buffered_bytes", s.sink.BufferedBytes())

	s.cancel()
	if err := s.voice.Disconnect(); err != nil {
		slog.Warn("failed to disconnect voice", "error", err, "session_id", s.id)
	}
	s.decoder.Close()

	ctx, cancel := context.WithTimeout(context.Background(), sessionFlushTimeout)
	defer cancel()
	if err := s.sink.OnSessionEnd(ctx); err != nil {
		slog.Error("failed to flush session audio", "error", err, "session_id", s.id)
		return err
	}
	slog.Info("capture session stopped", "session_id", s.id)
	return nil
}

func (m *Manager) shouldCountParticipant(userID string, isBot bool) bool {
	if userID == m.botUserID {
		return false
	}
	if isBot && !m.cfg.DiscordCountOtherBots {
		return false
	}
	return true
}

func (m *Manager) Shutdown() {
	if err := m.stopSession(nil, stopReasonServerClosed); err != nil {
		slog.Error("failed to stop session during shutdown", "error", err)
	}
}

func (m *Manager) isSessionRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}
