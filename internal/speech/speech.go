// Package speech adapts the two external speech services: text-to-speech
// synthesis (ElevenLabs) and speech-to-text transcription (OpenAI Whisper).
// Both are single-shot request/response calls; failures come back as
// *UpstreamError values for the session to absorb, never as panics.
package speech

import "fmt"

// UpstreamError wraps any third-party API failure: network, HTTP status or
// an unusable payload.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }
