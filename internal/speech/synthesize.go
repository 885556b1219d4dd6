package speech

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/haguro/elevenlabs-go"
)

const synthesisModel = "eleven_turbo_v2_5"

// ttsClient is the slice of the ElevenLabs client the synthesizer uses.
type ttsClient interface {
	TextToSpeech(voiceID string, req elevenlabs.TextToSpeechRequest, queries ...elevenlabs.QueryFunc) ([]byte, error)
}

// Synthesizer turns reply text into a playable mp3 file in the scratch
// directory. The caller owns the returned file and must delete it after
// playback.
type Synthesizer struct {
	client  ttsClient
	voiceID string
	dir     string
	log     *slog.Logger
}

func NewSynthesizer(client *elevenlabs.Client, voiceID, dir string, log *slog.Logger) *Synthesizer {
	return &Synthesizer{client: client, voiceID: voiceID, dir: dir, log: log}
}

// Synthesize posts text to the synthesis endpoint and writes the binary
// result to a fresh file. An upstream failure or an empty result is logged
// and reported as *UpstreamError; it never aborts the session.
func (s *Synthesizer) Synthesize(text string) (string, error) {
	s.log.Debug("generating speech", "chars", len(text))

	audio, err := s.client.TextToSpeech(s.voiceID, elevenlabs.TextToSpeechRequest{
		Text:    text,
		ModelID: synthesisModel,
	})
	if err != nil {
		s.log.Error("speech synthesis failed", "err", err)
		return "", &UpstreamError{Op: "text-to-speech", Err: err}
	}
	if len(audio) == 0 {
		s.log.Error("speech synthesis returned no audio")
		return "", &UpstreamError{Op: "text-to-speech", Err: errors.New("empty audio payload")}
	}

	f, err := os.CreateTemp(s.dir, "tts_*.mp3")
	if err != nil {
		return "", fmt.Errorf("create tts file: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(audio); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write tts file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close tts file: %w", err)
	}

	// an empty file on disk would make playback stall silently
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		os.Remove(path)
		return "", &UpstreamError{Op: "text-to-speech", Err: errors.New("written file is empty")}
	}

	s.log.Debug("speech written", "path", path, "bytes", info.Size())
	return path, nil
}
