package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

const transcriptionLanguage = "en"

// Transcriber posts recorded waveforms to the hosted Whisper endpoint with a
// fixed model and language selector.
type Transcriber struct {
	client openai.Client
	log    *slog.Logger
}

func NewTranscriber(client openai.Client, log *slog.Logger) *Transcriber {
	return &Transcriber{client: client, log: log}
}

// Transcribe uploads the waveform at path and returns the recognized text.
// Any upstream failure comes back as *UpstreamError; the caller treats it
// the same as no usable speech.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     f,
		Model:    openai.AudioModelWhisper1,
		Language: openai.String(transcriptionLanguage),
	})
	if err != nil {
		t.log.Error("transcription failed", "err", err)
		return "", &UpstreamError{Op: "speech-to-text", Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	t.log.Debug("transcribed", "text", text)
	return text, nil
}
