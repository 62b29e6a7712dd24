// Package domain defines domain-specific errors.
// These errors represent worker and session failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Setup errors abort application startup.
var (
	// ErrMissingAPICredentials is returned when the Web API client id or secret is not configured.
	ErrMissingAPICredentials = errors.New("missing web api client credentials")

	// ErrOAuthConfig is returned when the OAuth redirect configuration is missing or unusable.
	ErrOAuthConfig = errors.New("invalid oauth configuration")

	// ErrCacheRoot is returned when the cache root directory cannot be created.
	ErrCacheRoot = errors.New("cache root unavailable")
)

// Session errors signal that a precondition was not met.
var (
	// ErrNoAPIClient is returned when a task needs the Web API but nobody logged in.
	ErrNoAPIClient = errors.New("no authenticated api client")

	// ErrNoSession is returned when a playback operation has no engine session.
	ErrNoSession = errors.New("no playback session")

	// ErrInvalidCredentials is returned when login credentials are empty or rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionClosed is returned by an engine after Close.
	ErrSessionClosed = errors.New("playback session closed")
)

// Input and queue errors.
var (
	// ErrInvalidIdentifier is returned for malformed track or playlist identifiers.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrEmptyQueue is returned when navigation is attempted on an empty queue.
	ErrEmptyQueue = errors.New("queue is empty")

	// ErrInvalidIndex is returned when a queue index is out of bounds.
	ErrInvalidIndex = errors.New("invalid queue index")

	// ErrEmptyPlaylist is returned when an operation needs at least one track.
	ErrEmptyPlaylist = errors.New("playlist is empty")

	// ErrBatchTooLarge is returned when a track lookup exceeds MaxTrackBatch ids.
	ErrBatchTooLarge = errors.New("track batch too large")

	// ErrTooManySeeds is returned when more than MaxRecommendationSeeds seeds are given.
	ErrTooManySeeds = errors.New("too many recommendation seeds")

	// ErrIncompleteTrack is returned when a network record lacks an id or album.
	ErrIncompleteTrack = errors.New("incomplete track record")
)

// SetupError wraps a fatal startup failure.
type SetupError struct {
	Step    string // Startup step that failed (e.g., "cache", "config", "auth")
	Message string
	Err     error
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s failed: %s", e.Step, e.Message)
}

// Unwrap returns the underlying error.
func (e *SetupError) Unwrap() error {
	return e.Err
}

// NewSetupError creates a new SetupError.
func NewSetupError(step, message string, err error) *SetupError {
	return &SetupError{Step: step, Message: message, Err: err}
}

// EngineError represents an error from the playback engine.
type EngineError struct {
	Op      string  // Operation that failed (e.g., "load", "play", "preload")
	TrackID TrackID // Track involved (if any)
	Message string
	Err     error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.TrackID != "" {
		return fmt.Sprintf("playback engine %s failed for '%s': %s", e.Op, e.TrackID, e.Message)
	}
	return fmt.Sprintf("playback engine %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError.
func NewEngineError(op string, id TrackID, message string, err error) *EngineError {
	return &EngineError{Op: op, TrackID: id, Message: message, Err: err}
}

// APIError wraps a Web API failure. The worker never retries these.
type APIError struct {
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("web api %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError.
func NewAPIError(op, message string, err error) *APIError {
	return &APIError{Op: op, Message: message, Err: err}
}

// CacheError represents an error from the metadata cache.
type CacheError struct {
	Op      string // Operation that failed (e.g., "open", "flush", "artwork")
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s failed for '%s': %s", e.Op, e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *CacheError) Unwrap() error {
	return e.Err
}

// NewCacheError creates a new CacheError.
func NewCacheError(op, path, message string, err error) *CacheError {
	return &CacheError{Op: op, Path: path, Message: message, Err: err}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   any    // Value that failed validation
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "Worker")
	Op      string // Operation that failed
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
