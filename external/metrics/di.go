package metrics

import (
	"github.com/rino-1830/discord-live-scribe/internal/config"
	"github.com/rino-1830/discord-live-scribe/internal/metrics"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return NewServer(cfg.MetricsAddr, m.Registry), nil
	})
}
