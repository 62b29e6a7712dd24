// Package domain defines events for the event-driven architecture.
// Engine events flow from the playback engine into the worker; state updates
// flow from the worker to every subscriber.
package domain

import (
	"time"
)

// Event is emitted by a playback engine.
// The set of implementations is closed to this package.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time

	engineEvent()
}

// EventType is a string identifier for engine event types.
type EventType string

// Engine event kinds.
const (
	EventStarted       EventType = "engine.started"
	EventPlaying       EventType = "engine.playing"
	EventPaused        EventType = "engine.paused"
	EventAboutToFinish EventType = "engine.about_to_finish"
	EventTrackEnded    EventType = "engine.track_ended"
)

// SubscriptionID uniquely identifies a state update subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events and updates embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// trackEvent carries the id of the track an engine event refers to.
type trackEvent struct {
	baseEvent
	TrackID TrackID
}

func (trackEvent) engineEvent() {}

// EngineStartedEvent is emitted when the engine begins loading a track.
type EngineStartedEvent struct{ trackEvent }

// Type returns the event type.
func (e EngineStartedEvent) Type() EventType { return EventStarted }

// NewEngineStartedEvent creates a new EngineStartedEvent.
func NewEngineStartedEvent(id TrackID) EngineStartedEvent {
	return EngineStartedEvent{trackEvent{baseEvent: newBaseEvent(), TrackID: id}}
}

// EnginePlayingEvent is emitted when audio output starts or resumes.
type EnginePlayingEvent struct{ trackEvent }

// Type returns the event type.
func (e EnginePlayingEvent) Type() EventType { return EventPlaying }

// NewEnginePlayingEvent creates a new EnginePlayingEvent.
func NewEnginePlayingEvent(id TrackID) EnginePlayingEvent {
	return EnginePlayingEvent{trackEvent{baseEvent: newBaseEvent(), TrackID: id}}
}

// EnginePausedEvent is emitted when audio output pauses.
type EnginePausedEvent struct{ trackEvent }

// Type returns the event type.
func (e EnginePausedEvent) Type() EventType { return EventPaused }

// NewEnginePausedEvent creates a new EnginePausedEvent.
func NewEnginePausedEvent(id TrackID) EnginePausedEvent {
	return EnginePausedEvent{trackEvent{baseEvent: newBaseEvent(), TrackID: id}}
}

// EngineAboutToFinishEvent is emitted when the next track should be preloaded.
type EngineAboutToFinishEvent struct{ trackEvent }

// Type returns the event type.
func (e EngineAboutToFinishEvent) Type() EventType { return EventAboutToFinish }

// NewEngineAboutToFinishEvent creates a new EngineAboutToFinishEvent.
func NewEngineAboutToFinishEvent(id TrackID) EngineAboutToFinishEvent {
	return EngineAboutToFinishEvent{trackEvent{baseEvent: newBaseEvent(), TrackID: id}}
}

// EngineTrackEndedEvent is emitted when a track plays to its end.
type EngineTrackEndedEvent struct{ trackEvent }

// Type returns the event type.
func (e EngineTrackEndedEvent) Type() EventType { return EventTrackEnded }

// NewEngineTrackEndedEvent creates a new EngineTrackEndedEvent.
func NewEngineTrackEndedEvent(id TrackID) EngineTrackEndedEvent {
	return EngineTrackEndedEvent{trackEvent{baseEvent: newBaseEvent(), TrackID: id}}
}

// StateUpdate is broadcast by the worker when playback status changes.
type StateUpdate interface {
	// Type returns the update type identifier
	Type() UpdateType

	// Timestamp returns when the update was produced
	Timestamp() time.Time

	stateUpdate()
}

// UpdateType is a string identifier for state update types.
type UpdateType string

// State update kinds.
const (
	UpdatePaused     UpdateType = "state.paused"
	UpdateResumed    UpdateType = "state.resumed"
	UpdateStopped    UpdateType = "state.stopped"
	UpdateNowPlaying UpdateType = "state.now_playing"
)

// PausedUpdate is broadcast after a successful pause.
type PausedUpdate struct{ baseEvent }

// Type returns the update type.
func (PausedUpdate) Type() UpdateType { return UpdatePaused }
func (PausedUpdate) stateUpdate()     {}

// NewPausedUpdate creates a new PausedUpdate.
func NewPausedUpdate() PausedUpdate { return PausedUpdate{newBaseEvent()} }

// ResumedUpdate is broadcast after a successful play.
type ResumedUpdate struct{ baseEvent }

// Type returns the update type.
func (ResumedUpdate) Type() UpdateType { return UpdateResumed }
func (ResumedUpdate) stateUpdate()     {}

// NewResumedUpdate creates a new ResumedUpdate.
func NewResumedUpdate() ResumedUpdate { return ResumedUpdate{newBaseEvent()} }

// StoppedUpdate is broadcast after a successful stop.
type StoppedUpdate struct{ baseEvent }

// Type returns the update type.
func (StoppedUpdate) Type() UpdateType { return UpdateStopped }
func (StoppedUpdate) stateUpdate()     {}

// NewStoppedUpdate creates a new StoppedUpdate.
func NewStoppedUpdate() StoppedUpdate { return StoppedUpdate{newBaseEvent()} }

// NowPlayingUpdate is broadcast whenever a new track starts from the queue.
type NowPlayingUpdate struct {
	baseEvent
	Track TrackInfo
}

// Type returns the update type.
func (NowPlayingUpdate) Type() UpdateType { return UpdateNowPlaying }
func (NowPlayingUpdate) stateUpdate()     {}

// NewNowPlayingUpdate creates a new NowPlayingUpdate.
func NewNowPlayingUpdate(track TrackInfo) NowPlayingUpdate {
	return NowPlayingUpdate{baseEvent: newBaseEvent(), Track: track}
}
