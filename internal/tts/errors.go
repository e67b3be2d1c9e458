package tts

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// ErrEmptyText indicates the text was empty or whitespace only
	ErrEmptyText = errors.New("please enter some text to convert to speech")

	// ErrTextTooLong indicates the text exceeds the configured maximum
	ErrTextTooLong = errors.New("text exceeds the maximum length")

	// ErrInvalidGender indicates an unknown voice gender was given
	ErrInvalidGender = errors.New("invalid voice gender")

	// ErrNoBackendConfigured indicates no speech backend has been selected
	ErrNoBackendConfigured = errors.New("no speech backend configured - specify --backend local or --backend remote")

	// ErrInvalidBackend indicates an unknown backend was specified
	ErrInvalidBackend = errors.New("invalid speech backend specified")

	// ErrSuperseded is returned by Speak when a newer Speak or a Cancel took over
	// before the request finished. State is never touched on this path.
	ErrSuperseded = errors.New("playback was canceled or superseded")

	// ErrNoFetcher indicates the backend cannot hand out audio for download
	ErrNoFetcher = errors.New("backend does not support audio download")

	// ErrClosed indicates the adapter has been disposed
	ErrClosed = errors.New("playback adapter is closed")
)

// ValidationError reports a request rejected before it reached a backend.
type ValidationError struct {
	Err error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NetworkError reports a request that could not be sent or whose response
// could not be received.
type NetworkError struct {
	Err error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError reports a non-success status from the remote endpoint.
type ServerError struct {
	Status  int
	Message string
}

// Error implements the error interface
func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// DefaultServerMessage is used when the server did not explain the failure.
func DefaultServerMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return "the speech service rejected the request (" + text + ")"
	}
	return "the speech service rejected the request"
}

// DecodeError reports a payload that could not be interpreted as audio.
type DecodeError struct {
	Err error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode audio: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EngineError reports a failure of the local synthesis engine.
type EngineError struct {
	Engine string
	Err    error
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Engine, e.Err)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Describe converts any playback error into the single notification shown to
// the user.
func Describe(err error) string {
	var (
		validation *ValidationError
		network    *NetworkError
		server     *ServerError
		decode     *DecodeError
		engine     *EngineError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &server):
		return server.Message
	case errors.As(err, &network):
		return "Could not reach the speech service. Check your connection and try again."
	case errors.As(err, &decode):
		return "The speech service returned audio that could not be played."
	case errors.As(err, &engine):
		return "The speech engine failed: " + engine.Err.Error()
	case errors.Is(err, ErrNoFetcher):
		return "Audio download is not available for this backend."
	default:
		return err.Error()
	}
}
