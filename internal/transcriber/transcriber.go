package transcriber

import "context"

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (text string, err error)
}
