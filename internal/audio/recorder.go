// Package audio shuttles voice-channel audio in both directions: it captures
// one member's opus stream into a transcribable waveform and plays
// synthesized speech back into the channel.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hraban/opus"
)

const (
	// SampleRate and Channels match the voice gateway's opus streams.
	SampleRate = 48000
	Channels   = 2

	// maxFrameSamples is the largest opus frame (120 ms) per channel.
	maxFrameSamples = 5760
)

// Packet is one opus frame received from the voice connection.
type Packet struct {
	SSRC uint32
	Opus []byte
}

// Recording is one bounded utterance capture, materialized as a WAV file.
// It is consumed exactly once by transcription; the consumer calls Cleanup
// afterwards, on every path.
type Recording struct {
	Path     string
	Duration time.Duration
}

func (r *Recording) Cleanup() {
	if r != nil && r.Path != "" {
		os.Remove(r.Path)
	}
}

type RecorderConfig struct {
	// Window is the fixed wall-clock listen window per utterance.
	Window time.Duration
	// MinDuration is the shortest capture handed to transcription as-is;
	// anything shorter gets SilencePad of generated silence appended, since
	// very short clips make the transcription API unreliable.
	MinDuration time.Duration
	SilencePad  time.Duration
	// Dir is the scratch directory for waveform files.
	Dir string
}

func (c RecorderConfig) withDefaults() RecorderConfig {
	if c.Window <= 0 {
		c.Window = 5 * time.Second
	}
	if c.MinDuration <= 0 {
		c.MinDuration = time.Second
	}
	if c.SilencePad <= 0 {
		c.SilencePad = 10 * time.Second
	}
	return c
}

// Recorder captures one user's voice-channel audio. The source channel
// carries every packet on the connection; accept filters it down to the
// tracked user's stream.
type Recorder struct {
	cfg    RecorderConfig
	source <-chan *Packet
	accept func(ssrc uint32) bool
	log    *slog.Logger
}

func NewRecorder(source <-chan *Packet, accept func(uint32) bool, cfg RecorderConfig, log *slog.Logger) *Recorder {
	if accept == nil {
		accept = func(uint32) bool { return true }
	}
	return &Recorder{cfg: cfg.withDefaults(), source: source, accept: accept, log: log}
}

// Record buffers decoded frames for the configured window, pads short
// captures with silence and writes the result as a WAV file. Stream and
// decoder problems surface as *CaptureError, container problems as
// *EncodeError; either way the temp file is gone on failure.
func (r *Recorder) Record(ctx context.Context) (*Recording, error) {
	dec, err := opus.NewDecoder(SampleRate, Channels)
	if err != nil {
		return nil, &CaptureError{Err: fmt.Errorf("new decoder: %w", err)}
	}

	pcm := make([]int16, 0, SampleRate*Channels*int(r.cfg.Window/time.Second))
	frame := make([]int16, maxFrameSamples*Channels)

	deadline := time.NewTimer(r.cfg.Window)
	defer deadline.Stop()

capture:
	for {
		select {
		case <-ctx.Done():
			return nil, &CaptureError{Err: ctx.Err()}
		case <-deadline.C:
			break capture
		case pkt, ok := <-r.source:
			if !ok {
				return nil, &CaptureError{Err: errors.New("voice stream closed")}
			}
			if pkt == nil || !r.accept(pkt.SSRC) {
				continue
			}
			n, err := dec.Decode(pkt.Opus, frame)
			if err != nil {
				r.log.Debug("dropping undecodable packet", "err", err)
				continue
			}
			pcm = append(pcm, frame[:n*Channels]...)
		}
	}

	captured := pcmDuration(pcm)
	if captured < r.cfg.MinDuration {
		r.log.Debug("padding short capture", "captured", captured, "pad", r.cfg.SilencePad)
		pcm = padWithSilence(pcm, r.cfg.SilencePad)
	}

	path, err := writeWAV(r.cfg.Dir, pcm)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}

	return &Recording{Path: path, Duration: pcmDuration(pcm)}, nil
}
