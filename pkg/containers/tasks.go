package containers

import (
	"time"

	"github.com/google/uuid"
)

// Task is a unit of parallel work within a session, typically one file's
// extraction performed by one worker over its own task-scoped store. Like
// Session it is a value record; the writer derives and persists the one-shot
// TaskStart and TaskCompletion containers.
type Task struct {
	// Identifier uniquely names the task.
	Identifier string
	// SessionIdentifier names the owning session.
	SessionIdentifier string
	// SourcePath locates the evidence the task processes.
	SourcePath string
	// StartTime is when the task began, in UTC.
	StartTime time.Time
	// CompletionTime is when the task ended; zero while running.
	CompletionTime time.Time
	// Aborted reports whether the task terminated before completing.
	Aborted bool
}

// NewTask returns a task for the given session with a fresh identifier and
// the start time set to now.
func NewTask(sessionIdentifier string) *Task {
	return &Task{
		Identifier:        uuid.NewString(),
		SessionIdentifier: sessionIdentifier,
		StartTime:         time.Now().UTC(),
	}
}

// CreateTaskStart derives the task start container. Pure derivation: the
// task itself is not modified.
func (t *Task) CreateTaskStart() *TaskStart {
	return &TaskStart{
		TaskIdentifier:    t.Identifier,
		SessionIdentifier: t.SessionIdentifier,
		StartTime:         t.StartTime,
	}
}

// CreateTaskCompletion derives the task completion container.
func (t *Task) CreateTaskCompletion() *TaskCompletion {
	return &TaskCompletion{
		TaskIdentifier:    t.Identifier,
		SessionIdentifier: t.SessionIdentifier,
		Aborted:           t.Aborted,
		CompletionTime:    t.CompletionTime,
	}
}

// TaskStart records the start of a task. At most one exists per task
// instance.
type TaskStart struct {
	identifier

	TaskIdentifier    string    `cbor:"task_identifier" json:"task_identifier"`
	SessionIdentifier string    `cbor:"session_identifier" json:"session_identifier"`
	StartTime         time.Time `cbor:"start_time" json:"start_time"`
}

// ContainerKind implements Container.
func (t *TaskStart) ContainerKind() Kind { return KindTaskStart }

// TaskCompletion records the end of a task, carrying its final status.
type TaskCompletion struct {
	identifier

	TaskIdentifier    string    `cbor:"task_identifier" json:"task_identifier"`
	SessionIdentifier string    `cbor:"session_identifier" json:"session_identifier"`
	Aborted           bool      `cbor:"aborted" json:"aborted"`
	CompletionTime    time.Time `cbor:"completion_time" json:"completion_time"`
}

// ContainerKind implements Container.
func (t *TaskCompletion) ContainerKind() Kind { return KindTaskCompletion }
