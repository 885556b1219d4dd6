package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/hraban/opus"
)

const (
	// frameSamples is one 20 ms opus frame per channel.
	frameSamples = 960
	maxOpusBytes = 4000
)

// Sink is the outbound half of a voice connection: a speaking toggle and a
// channel of encoded opus frames.
type Sink interface {
	Speaking(bool) error
	Frames() chan<- []byte
}

// Player turns synthesized mp3 files into opus frames and feeds them to the
// sink in order. Play returns only after the last frame has been handed
// over, which is what keeps response segments strictly sequential.
type Player struct {
	sink Sink
	log  *slog.Logger
}

func NewPlayer(sink Sink, log *slog.Logger) *Player {
	return &Player{sink: sink, log: log}
}

func (p *Player) Play(ctx context.Context, path string) error {
	pcm, err := decodeMP3(path)
	if err != nil {
		return &EncodeError{Err: err}
	}

	enc, err := opus.NewEncoder(SampleRate, Channels, opus.AppVoIP)
	if err != nil {
		return &EncodeError{Err: fmt.Errorf("new encoder: %w", err)}
	}

	if err := p.sink.Speaking(true); err != nil {
		p.log.Warn("speaking toggle failed", "err", err)
	}
	defer func() {
		if err := p.sink.Speaking(false); err != nil {
			p.log.Warn("speaking toggle failed", "err", err)
		}
	}()

	buf := make([]byte, maxOpusBytes)
	step := frameSamples * Channels
	for off := 0; off < len(pcm); off += step {
		frame := pcm[off:min(off+step, len(pcm))]
		if len(frame) < step {
			// the encoder wants whole 20 ms frames; zero-fill the tail
			frame = append(frame, make([]int16, step-len(frame))...)
		}

		n, err := enc.Encode(frame, buf)
		if err != nil {
			return &EncodeError{Err: fmt.Errorf("encode frame: %w", err)}
		}

		packet := make([]byte, n)
		copy(packet, buf[:n])

		select {
		case p.sink.Frames() <- packet:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// decodeMP3 reads the whole file into interleaved 16-bit stereo PCM at the
// gateway sample rate.
func decodeMP3(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read mp3 stream: %w", err)
	}

	// go-mp3 always yields 16-bit little-endian stereo
	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}

	if sr := dec.SampleRate(); sr != SampleRate {
		pcm = resampleStereo(pcm, sr, SampleRate)
	}
	return pcm, nil
}
