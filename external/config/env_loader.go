package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/rino-1830/discord-live-scribe/internal/config"
)

type envConfig struct {
	Env                          string `env:"ENV" envDefault:"production"`
	DiscordToken                 string `env:"DISCORD_TOKEN,required"`
	DiscordGuildID               string `env:"DISCORD_GUILD_ID,required"`
	DiscordVoiceChannelID        string `env:"DISCORD_VOICE_CHANNEL_ID,required"`
	DiscordAnnounceTranscripts   bool   `env:"DISCORD_ANNOUNCE_TRANSCRIPTS" envDefault:"false"`
	DiscordCountOtherBots        bool   `env:"DISCORD_COUNT_OTHER_BOTS_AS_PARTICIPANTS" envDefault:"false"`
	RedisURL                     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	AudioStreamName              string `env:"AUDIO_STREAM_NAME" envDefault:"audio"`
	ReadBlockMillis              int    `env:"READ_BLOCK_MILLIS" envDefault:"1000"`
	PollBackoffMillis            int    `env:"POLL_BACKOFF_MILLIS" envDefault:"100"`
	TranscribeMaxAttempts        int    `env:"TRANSCRIBE_MAX_ATTEMPTS" envDefault:"1"`
	TranscribeRetryBackoffMillis int    `env:"TRANSCRIBE_RETRY_BACKOFF_MILLIS" envDefault:"250"`
	CursorMode                   string `env:"CURSOR_MODE" envDefault:"memory"`
	CursorKey                    string `env:"CURSOR_KEY" envDefault:"scribe:cursor"`
	MaxSessionDurationMin        int    `env:"MAX_SESSION_DURATION_MIN" envDefault:"120"`
	DatabaseURL                  string `env:"DATABASE_URL,required"`
	TranscriptWebhookURL         string `env:"TRANSCRIPT_WEBHOOK_URL"`
	GoogleCloudProjectID         string `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON   string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON,required"`
	GoogleCloudSpeechLocation    string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel       string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"latest_short"`
	DefaultTranscribeLanguage    string `env:"DEFAULT_TRANSCRIBE_LANGUAGE,required"`
	MetricsAddr                  string `env:"METRICS_ADDR"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                          raw.Env,
		DiscordToken:                 raw.DiscordToken,
		DiscordGuildID:               raw.DiscordGuildID,
		DiscordVoiceChannelID:        raw.DiscordVoiceChannelID,
		DiscordAnnounceTranscripts:   raw.DiscordAnnounceTranscripts,
		DiscordCountOtherBots:        raw.DiscordCountOtherBots,
		RedisURL:                     raw.RedisURL,
		AudioStreamName:              raw.AudioStreamName,
		ReadBlockMillis:              raw.ReadBlockMillis,
		PollBackoffMillis:            raw.PollBackoffMillis,
		TranscribeMaxAttempts:        raw.TranscribeMaxAttempts,
		TranscribeRetryBackoffMillis: raw.TranscribeRetryBackoffMillis,
		CursorMode:                   raw.CursorMode,
		CursorKey:                    raw.CursorKey,
		MaxSessionDurationMin:        raw.MaxSessionDurationMin,
		DatabaseURL:                  raw.DatabaseURL,
		TranscriptWebhookURL:         raw.TranscriptWebhookURL,
		GoogleCloudProjectID:         raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON:   raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:    raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:       raw.GoogleCloudSpeechModel,
		DefaultTranscribeLanguage:    raw.DefaultTranscribeLanguage,
		MetricsAddr:                  raw.MetricsAddr,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
