package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrEmptyQuery       = errors.New("search query is empty")
	ErrNoResults        = errors.New("no results found")
	ErrNoSearch         = errors.New("no active search")
	ErrAtFirstPage      = errors.New("already on the first page")
	ErrAtLastPage       = errors.New("already on the last page")
	ErrInvalidPageIndex = errors.New("page number out of range")
	ErrUnknownPageCount = errors.New("total page count is not known yet")
	ErrIndexOutOfRange  = errors.New("sound number out of range")
	ErrEmptyPage        = errors.New("page has no results")

	ErrNetwork           = errors.New("network error")
	ErrAPI               = errors.New("bad response from remote")
	ErrNoPreview         = errors.New("sound has no preview stream")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrSourceUnavailable = errors.New("audio source unavailable")
	ErrStateConflict     = errors.New("operation not valid in current playback state")
	ErrAudioDevice       = errors.New("audio device failure")
	ErrInvalidVolume     = errors.New("volume must be between 0.0 and 1.0")

	ErrUnknownCommand = errors.New("unknown command")
)

// PlaybackError wraps playback failures with additional context
type PlaybackError struct {
	Op    string // Operation that failed
	Sound string // Sound name or ID if applicable
	Err   error  // Underlying error
}

func (e *PlaybackError) Error() string {
	if e.Sound != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Sound, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// NewPlaybackError creates a new PlaybackError
func NewPlaybackError(op, sound string, err error) *PlaybackError {
	return &PlaybackError{Op: op, Sound: sound, Err: err}
}

// APIError represents a non-success response from the search API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("api returned status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return ErrAPI
}
