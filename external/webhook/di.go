package webhook

import (
	"github.com/rino-1830/discord-live-scribe/internal/config"
	"github.com/rino-1830/discord-live-scribe/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (webhook.Sender, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPSender(c.TranscriptWebhookURL), nil
	})
}
