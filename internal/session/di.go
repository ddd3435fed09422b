package session

import (
	"github.com/rino-1830/discord-live-scribe/internal/audio"
	"github.com/rino-1830/discord-live-scribe/internal/config"
	"github.com/rino-1830/discord-live-scribe/internal/discord"
	"github.com/rino-1830/discord-live-scribe/internal/metrics"
	"github.com/rino-1830/discord-live-scribe/internal/stream"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[stream.Log](i)
		dc := do.MustInvoke[discord.Client](i)
		newDecoder := do.MustInvoke[audio.DecoderFactory](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return NewManager(cfg, log, dc, newDecoder, m), nil
	})
}
