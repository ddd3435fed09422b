package transcriber

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/rino-1830/discord-live-scribe/internal/transcriber"
	"google.golang.org/api/option"
)

const (
	speechAPIEndpointPort = 443
	audioSampleRateHertz  = 48000
	audioChannelCount     = 2
	bytesPerSample        = 2
	maxRecognizeSeconds   = 50
	maxRecognizeBytes     = audioSampleRateHertz * audioChannelCount * bytesPerSample * maxRecognizeSeconds
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

type CloudSpeechTranscriber struct {
	client     *speech.Client
	recognizer string
	language   string
	model      string
}

func NewCloudSpeechTranscriber(ctx context.Context, cfg CloudSpeechConfig) (transcriber.Transcriber, error) {
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = "global"
	}

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(cfg.CredentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	return &CloudSpeechTranscriber{
		client:     client,
		recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", cfg.ProjectID, location),
		language:   cfg.Language,
		model:      strings.TrimSpace(cfg.Model),
	}, nil
}

func (t *CloudSpeechTranscriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	var parts []string
	for _, segment := range splitPCM(pcm, maxRecognizeBytes) {
		text, err := t.recognizeSegment(ctx, segment)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (t *CloudSpeechTranscriber) recognizeSegment(ctx context.Context, pcm []byte) (string, error) {
	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: t.recognizer,
		Config: &speechpb.RecognitionConfig{
			Model:         t.model,
			LanguageCodes: []string{t.language},
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   audioSampleRateHertz,
					AudioChannelCount: audioChannelCount,
				},
			},
			Features: &speechpb.RecognitionFeatures{},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: pcm},
	})
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		text := strings.TrimSpace(alternatives[0].GetTranscript())
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// splitPCM keeps segments aligned to whole samples across all channels.
func splitPCM(pcm []byte, maxBytes int) [][]byte {
	frameBytes := audioChannelCount * bytesPerSample
	if maxBytes < frameBytes {
		maxBytes = frameBytes
	}
	maxBytes -= maxBytes % frameBytes

	if len(pcm) <= maxBytes {
		return [][]byte{pcm}
	}

	var segments [][]byte
	for start := 0; start < len(pcm); start += maxBytes {
		end := start + maxBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		segments = append(segments, pcm[start:end])
	}
	return segments
}
