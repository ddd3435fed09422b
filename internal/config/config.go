package config

import "fmt"

const (
	CursorModeMemory = "memory"
	CursorModeRedis  = "redis"
)

type Config struct {
	Env                          string
	DiscordToken                 string
	DiscordGuildID               string
	DiscordVoiceChannelID        string
	DiscordAnnounceTranscripts   bool
	DiscordCountOtherBots        bool
	RedisURL                     string
	AudioStreamName              string
	ReadBlockMillis              int
	PollBackoffMillis            int
	TranscribeMaxAttempts        int
	TranscribeRetryBackoffMillis int
	CursorMode                   string
	CursorKey                    string
	MaxSessionDurationMin        int
	DatabaseURL                  string
	TranscriptWebhookURL         string
	GoogleCloudProjectID         string
	GoogleCloudCredentialsJSON   string
	GoogleCloudSpeechLocation    string
	GoogleCloudSpeechModel       string
	DefaultTranscribeLanguage    string
	MetricsAddr                  string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.ReadBlockMillis <= 0 {
		return fmt.Errorf("READ_BLOCK_MILLIS must be positive, got %d", c.ReadBlockMillis)
	}
	if c.PollBackoffMillis <= 0 {
		return fmt.Errorf("POLL_BACKOFF_MILLIS must be positive, got %d", c.PollBackoffMillis)
	}
	if c.TranscribeMaxAttempts <= 0 {
		return fmt.Errorf("TRANSCRIBE_MAX_ATTEMPTS must be positive, got %d", c.TranscribeMaxAttempts)
	}
	if c.TranscribeRetryBackoffMillis < 0 {
		return fmt.Errorf("TRANSCRIBE_RETRY_BACKOFF_MILLIS must not be negative, got %d", c.TranscribeRetryBackoffMillis)
	}
	if c.MaxSessionDurationMin <= 0 {
		return fmt.Errorf("MAX_SESSION_DURATION_MIN must be positive, got %d", c.MaxSessionDurationMin)
	}
	if c.CursorMode != CursorModeMemory && c.CursorMode != CursorModeRedis {
		return fmt.Errorf("CURSOR_MODE must be %q or %q, got %q", CursorModeMemory, CursorModeRedis, c.CursorMode)
	}
	if c.CursorMode == CursorModeRedis && c.CursorKey == "" {
		return fmt.Errorf("CURSOR_KEY is required when CURSOR_MODE=%s", CursorModeRedis)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "DISCORD_GUILD_ID", value: c.DiscordGuildID},
		{name: "DISCORD_VOICE_CHANNEL_ID", value: c.DiscordVoiceChannelID},
		{name: "REDIS_URL", value: c.RedisURL},
		{name: "AUDIO_STREAM_NAME", value: c.AudioStreamName},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "DEFAULT_TRANSCRIBE_LANGUAGE", value: c.DefaultTranscribeLanguage},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
