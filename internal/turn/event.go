package turn

import "time"

// EventKind identifies an Event.
type EventKind string

const (
	EventTransition EventKind = "transition"
	EventQuestion   EventKind = "question"
	EventPartial    EventKind = "partial"
	EventAnswer     EventKind = "answer"
	EventError      EventKind = "error"

	// Audio commands, published when no Player or Recorder is attached
	// and the client acts as the audio bridge.
	EventSpeak        EventKind = "speak"
	EventStopPlayback EventKind = "stop_playback"
	EventStartCapture EventKind = "start_capture"
	EventStopCapture  EventKind = "stop_capture"
)

// Event is published by the controller on every observable change.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`
	From      State     `json:"from,omitempty"`
	To        State     `json:"to,omitempty"`
	Index     int       `json:"index,omitempty"`
	Text      string    `json:"text,omitempty"`

	// Judgment is the latest completeness estimate for a partial.
	Judgment *Judgment `json:"judgment,omitempty"`

	// Reason is set on the final transition to complete.
	Reason Reason `json:"reason,omitempty"`

	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`

	At time.Time `json:"at"`
}

// Sink receives controller events. It is called from the controller's
// loop and must not block.
type Sink func(Event)
