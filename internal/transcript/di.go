package transcript

import (
	"github.com/rino-1830/discord-live-scribe/internal/config"
	"github.com/rino-1830/discord-live-scribe/internal/discord"
	"github.com/rino-1830/discord-live-scribe/internal/repository"
	"github.com/rino-1830/discord-live-scribe/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Sink, error) {
		cfg := do.MustInvoke[*config.Config](i)
		store := do.MustInvoke[repository.TranscriptStore](i)
		sender := do.MustInvoke[webhook.Sender](i)
		dc := do.MustInvoke[discord.Client](i)
		return NewPublisher(cfg, store, sender, dc), nil
	})
}
