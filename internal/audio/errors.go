package audio

import "fmt"

// CaptureError marks a failure of the inbound audio stream or its decoder.
// It aborts one listen cycle, never the session.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string { return fmt.Sprintf("capture: %v", e.Err) }

func (e *CaptureError) Unwrap() error { return e.Err }

// EncodeError marks a failure converting captured frames into the waveform
// container.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode: %v", e.Err) }

func (e *EncodeError) Unwrap() error { return e.Err }
