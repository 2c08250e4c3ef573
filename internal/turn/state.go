package turn

// State is a TurnController state.
type State string

const (
	StateIdle       State = "idle"
	StateSpeaking   State = "speaking"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
)

// Reason tells why a session completed.
type Reason string

const (
	// ReasonFinished means every question was answered or skipped.
	ReasonFinished Reason = "finished"

	// ReasonEnded means the application requested the end.
	ReasonEnded Reason = "ended"

	// ReasonTimeExpired means the session timer fired.
	ReasonTimeExpired Reason = "time_expired"
)
