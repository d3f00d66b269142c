package transcribe

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied       = errors.New("transcribe: speech permission denied")
	ErrRecognizerUnavailable  = errors.New("transcribe: recognizer unavailable")
	ErrModelNotDownloaded     = errors.New("transcribe: offline model not downloaded")
	ErrNoInferencer           = errors.New("transcribe: no offline inference backend wired")
	ErrAudioConversion        = errors.New("transcribe: audio conversion failed")

	// ErrEmptyTranscript: an empty result is treated as failure, not as a
	// valid "no speech" answer. Distinguishing silence from failure is a
	// known limitation of the current offline backend contract.
	ErrEmptyTranscript = errors.New("transcribe: empty transcript")
)

// OfflineError wraps any failure from the offline path. In automatic mode it
// is caught locally and triggers online fallback instead of propagating.
type OfflineError struct {
	Err error
}

func (e *OfflineError) Error() string {
	return fmt.Sprintf("transcribe: offline transcription failed: %v", e.Err)
}

func (e *OfflineError) Unwrap() error { return e.Err }
