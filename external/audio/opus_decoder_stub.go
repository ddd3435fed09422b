//go:build !opus

package audio

import "github.com/rino-1830/discord-live-scribe/internal/audio"

type noopDecoder struct{}

func NewOpusDecoder() audio.Decoder {
	return &noopDecoder{}
}

func (d *noopDecoder) Decode(_ uint64, _ []byte) ([]byte, error) {
	return nil, nil
}

func (d *noopDecoder) Close() {}
