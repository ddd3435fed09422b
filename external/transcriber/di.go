package transcriber

import (
	"context"

	"github.com/rino-1830/discord-live-scribe/internal/config"
	"github.com/rino-1830/discord-live-scribe/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Transcriber, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewCloudSpeechTranscriber(context.Background(), CloudSpeechConfig{
			ProjectID:       c.GoogleCloudProjectID,
			CredentialsJSON: c.GoogleCloudCredentialsJSON,
			Language:        c.DefaultTranscribeLanguage,
			Location:        c.GoogleCloudSpeechLocation,
			Model:           c.GoogleCloudSpeechModel,
		})
	})
}
