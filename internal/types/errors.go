package types

import "fmt"

// UnsupportedFormatError is returned when the audio container or codec
// cannot be decoded. Fatal, surfaced before any model invocation.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Format == "" {
		return "unsupported audio format"
	}
	return fmt.Sprintf("unsupported audio format %q", e.Format)
}

// EmptyAudioError is returned when the input decodes to zero duration.
type EmptyAudioError struct{}

func (e *EmptyAudioError) Error() string { return "audio decoded to zero duration" }

// ModelUnavailableError signals a missing model capability (credentials,
// weights, unreachable backend). Fatal for transcription, degradable for
// diarization.
type ModelUnavailableError struct {
	Capability string
	Err        error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s model unavailable", e.Capability)
	}
	return fmt.Sprintf("%s model unavailable: %v", e.Capability, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// ResourceExhaustedError signals the model backend ran out of memory or
// capacity. The pipeline may retry once on a lower-resource path.
type ResourceExhaustedError struct {
	Capability string
	Err        error
}

func (e *ResourceExhaustedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s model resources exhausted", e.Capability)
	}
	return fmt.Sprintf("%s model resources exhausted: %v", e.Capability, e.Err)
}

func (e *ResourceExhaustedError) Unwrap() error { return e.Err }
