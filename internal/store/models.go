package store

import "time"

// Fixed keys in the kv table.
const (
	KeyToken     = "token"
	KeyUserID    = "userId"
	KeyStatusMap = "statusMap_v1"
)

// EventKind classifies entries in the activity log.
type EventKind string

const (
	EventMoved      EventKind = "moved"
	EventMoveFailed EventKind = "move_failed"
	EventDeleted    EventKind = "deleted"
	EventCreated    EventKind = "created"
	EventEdited     EventKind = "edited"
	EventCorrected  EventKind = "status_corrected" // A user-supplied enum override was recorded
	EventFailed     EventKind = "failed"
)

// Event represents something this client did to a remote task.
type Event struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	Kind      EventKind `json:"kind"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
