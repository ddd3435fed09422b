//go:build opus

package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/hraban/opus"
	"github.com/rino-1830/discord-live-scribe/internal/audio"
)

const (
	sampleRate      = 48000
	channels        = 2
	frameSizeMs     = 20
	samplesPerFrame = sampleRate * frameSizeMs * channels / 1000
)

type OpusDecoder struct {
	mu       sync.Mutex
	decoders map[uint64]*opus.Decoder
	closed   bool
}

func NewOpusDecoder() audio.Decoder {
	return &OpusDecoder{
		decoders: make(map[uint64]*opus.Decoder),
	}
}

func (d *OpusDecoder) Decode(speakerID uint64, packet []byte) ([]byte, error) {
	if len(packet) == 0 {
		return nil, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, nil
	}

	dec, ok := d.decoders[speakerID]
	if !ok {
		var err error
		dec, err = opus.NewDecoder(sampleRate, channels)
		if err != nil {
			return nil, fmt.Errorf("create opus decoder: %w", err)
		}
		d.decoders[speakerID] = dec
	}

	pcm := make([]int16, samplesPerFrame)
	n, err := dec.Decode(packet, pcm)
	if err != nil {
		return nil, fmt.Errorf("decode opus packet: %w", err)
	}
	if n <= 0 {
		return nil, nil
	}
	totalSamples := n * channels
	if totalSamples > samplesPerFrame {
		totalSamples = samplesPerFrame
	}

	out := make([]byte, totalSamples*2)
	for i := 0; i < totalSamples; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(pcm[i]))
	}
	return out, nil
}

func (d *OpusDecoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.decoders = nil
}
