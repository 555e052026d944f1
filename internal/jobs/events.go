package jobs

// EventType discriminates progress events on a job's stream.
type EventType string

const (
	// EventLog carries one appended transcript line.
	EventLog EventType = "log"

	// EventDone signals successful completion; Artifact points at the
	// export file. The stream ends after this event.
	EventDone EventType = "done"

	// EventError signals failure or cancellation. The stream ends after
	// this event.
	EventError EventType = "error"

	// EventHeartbeat keeps idle long-lived connections alive.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one progress notification delivered to subscribers.
type Event struct {
	Type     EventType `json:"type"`
	JobID    string    `json:"job_id"`
	Text     string    `json:"text,omitempty"`
	Artifact string    `json:"artifact,omitempty"`
}
