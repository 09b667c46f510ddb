package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types published during a provisioning run
const (
	TypeRunStarted    = "run.started"
	TypeRunCompleted  = "run.completed"
	TypeRunFailed     = "run.failed"
	TypeStepStarted   = "step.started"
	TypeStepCompleted = "step.completed"
	TypeStepSkipped   = "step.skipped"
	TypeStepFailed    = "step.failed"
)

// Event carries progress information about a provisioning run.
// Step is empty for run-level events. Steps that found the host already in
// the desired state are published as TypeStepSkipped with Changed false.
type Event struct {
	ID        string
	Type      string
	RunID     string
	Step      string
	Detail    string
	Changed   bool
	Err       error
	Timestamp time.Time
}

// NewEvent creates an event with a fresh ID and timestamp
func NewEvent(eventType, runID, step string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		RunID:     runID,
		Step:      step,
		Timestamp: time.Now(),
	}
}

// Handler processes a published event
type Handler func(Event)
