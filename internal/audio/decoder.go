package audio

type Decoder interface {
	Decode(speakerID uint64, packet []byte) (pcm []byte, err error)
	Close()
}

type DecoderFactory func() Decoder
