package audio

import (
	"fmt"
	"os"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// pcmDuration reports how long an interleaved 16-bit buffer plays for.
func pcmDuration(pcm []int16) time.Duration {
	frames := len(pcm) / Channels
	return time.Duration(frames) * time.Second / SampleRate
}

// padWithSilence appends pad worth of generated silence to the capture.
func padWithSilence(pcm []int16, pad time.Duration) []int16 {
	n := int(pad.Seconds()*SampleRate) * Channels
	return append(pcm, make([]int16, n)...)
}

// writeWAV encodes interleaved PCM into a fresh WAV file under dir. The file
// is removed again when encoding fails partway.
func writeWAV(dir string, pcm []int16) (string, error) {
	f, err := os.CreateTemp(dir, "utterance_*.wav")
	if err != nil {
		return "", fmt.Errorf("create wav file: %w", err)
	}
	path := f.Name()

	fail := func(err error) (string, error) {
		f.Close()
		os.Remove(path)
		return "", err
	}

	data := make([]int, len(pcm))
	for i, s := range pcm {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(f, SampleRate, 16, Channels, 1)
	buf := &gaudio.IntBuffer{
		Data:           data,
		Format:         &gaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fail(fmt.Errorf("write wav: %w", err))
	}
	if err := enc.Close(); err != nil {
		return fail(fmt.Errorf("finalize wav: %w", err))
	}
	if err := f.Close(); err != nil {
		return fail(fmt.Errorf("close wav: %w", err))
	}

	return path, nil
}
