package discord

import (
	"github.com/rino-1830/discord-live-scribe/internal/config"
	"github.com/rino-1830/discord-live-scribe/internal/discord"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (discord.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewClient(c.DiscordToken), nil
	})
}
