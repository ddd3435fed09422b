package audio

import (
	"github.com/rino-1830/discord-live-scribe/internal/audio"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.ProvideValue(injector, audio.DecoderFactory(func() audio.Decoder {
		return NewOpusDecoder()
	}))
}
