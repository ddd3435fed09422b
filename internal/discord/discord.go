package discord

import "context"

type VoiceStateEvent struct {
	GuildID         string
	UserID          string
	UserIsBot       bool
	BeforeChannelID string
	AfterChannelID  string
}

type VoiceParticipant struct {
	UserID string
	IsBot  bool
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	JoinVoiceChannel(guildID, channelID string) (VoiceConnection, error)
	SendChannelMessage(channelID, content string) error
	RegisterVoiceStateUpdateHandler(handler func(VoiceStateEvent))
	ListVoiceChannelParticipants(guildID, channelID string) ([]VoiceParticipant, error)
	GetBotUserID() (string, error)
	Run() error
}

type VoiceConnection interface {
	Disconnect() error
	ReceiveAudio(callback func(userID string, opusPacket []byte))
}
