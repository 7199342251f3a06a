package storage

import (
	"errors"
	"fmt"

	"github.com/sifterlab/sifter/pkg/containers"
)

// Type declares the scope a writer represents. It gates which lifecycle
// records the writer may persist.
type Type string

// Writer storage types.
const (
	// TypeSession marks the writer of a session's root store.
	TypeSession Type = "session"
	// TypeTask marks the writer of one task's private store.
	TypeTask Type = "task"
)

// Writer is the single access point a producer uses while a store is being
// populated. It narrows the Store interface by enforcing which container
// kinds may be written given the storage type, and tracks the sequential
// "newly written" cursor over event-source containers that schedulers poll
// for incremental work discovery.
//
// A writer holds a non-owning handle to exactly one store for the duration
// it is open. Lifecycle is Closed -> Open -> Closed; every operation other
// than Open fails with ErrNotOpen outside the open window.
type Writer struct {
	storageType Type
	store       Store
	opened      bool

	firstWrittenEventSourceIndex int
	writtenEventSourceIndex      int

	// Cached one-shot lifecycle records, populated by the Write* methods.
	// The "at most one per scope" invariant is the caller's to uphold; a
	// second write replaces the cache and appends another record.
	sessionStart         *containers.SessionStart
	sessionCompletion    *containers.SessionCompletion
	sessionConfiguration *containers.SessionConfiguration
	taskStart            *containers.TaskStart
	taskCompletion       *containers.TaskCompletion
}

// NewWriter returns a closed writer over the given store. The storage type
// is immutable for the writer's lifetime.
func NewWriter(store Store, storageType Type) *Writer {
	return &Writer{
		storageType: storageType,
		store:       store,
	}
}

// StorageType returns the writer's storage type.
func (w *Writer) StorageType() Type {
	return w.storageType
}

// Store returns the backing store handle, or nil once the writer is closed.
// Consumers use it for read access while the writer is populating the store.
func (w *Writer) Store() Store {
	return w.store
}

// Open opens the backing store, attaching to it if the caller opened it
// already, and snapshots the event-source cursor at the store's current
// count, so that only sources written after this point are visible through
// the cursor reads.
func (w *Writer) Open() error {
	if w.store == nil {
		return ErrNotOpen
	}

	if w.opened {
		return ErrAlreadyOpen
	}

	err := w.store.Open()
	if err != nil && !errors.Is(err, ErrAlreadyOpen) {
		return fmt.Errorf("open store: %w", err)
	}

	count, err := w.store.CountContainers(containers.KindEventSource)
	if err != nil {
		return fmt.Errorf("count event sources: %w", err)
	}

	w.opened = true
	w.firstWrittenEventSourceIndex = count
	w.writtenEventSourceIndex = count

	return nil
}

// Close closes the backing store and releases the handle. The writer cannot
// be reopened.
func (w *Writer) Close() error {
	if w.store == nil {
		return ErrNotOpen
	}

	store := w.store
	w.store = nil

	err := store.Close()
	if err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	return nil
}

// add appends a container after the writable check.
func (w *Writer) add(c containers.Container) (int64, error) {
	if w.store == nil {
		return 0, ErrNotOpen
	}

	return w.store.AddContainer(c)
}

// AddEvent appends an event and returns its assigned identifier. The caller
// must have linked the event to its event data beforehand.
func (w *Writer) AddEvent(event *containers.Event) (int64, error) {
	return w.add(event)
}

// AddEventData appends event data and returns its assigned identifier, which
// the caller passes to Event.SetEventDataIdentifier.
func (w *Writer) AddEventData(data *containers.EventData) (int64, error) {
	return w.add(data)
}

// AddEventSource appends an event source and returns its assigned identifier.
func (w *Writer) AddEventSource(source *containers.EventSource) (int64, error) {
	return w.add(source)
}

// AddExtractionWarning appends an extraction warning and returns its
// assigned identifier.
func (w *Writer) AddExtractionWarning(warning *containers.ExtractionWarning) (int64, error) {
	return w.add(warning)
}

// AddAnalysisReport appends an analysis report and returns its assigned
// identifier.
func (w *Writer) AddAnalysisReport(report *containers.AnalysisReport) (int64, error) {
	return w.add(report)
}

// checkWritable returns ErrNotOpen when closed, or ErrUnsupportedStorageType
// when the writer's storage type differs from want.
func (w *Writer) checkWritable(want Type) error {
	if w.store == nil {
		return ErrNotOpen
	}

	if w.storageType != want {
		return fmt.Errorf("%w: %s write on %s storage", ErrUnsupportedStorageType, want, w.storageType)
	}

	return nil
}

// WriteSessionStart derives the session start record from the session,
// appends it, and caches it on the writer. Session storage only.
func (w *Writer) WriteSessionStart(session *containers.Session) error {
	err := w.checkWritable(TypeSession)
	if err != nil {
		return err
	}

	start := session.CreateSessionStart()

	_, err = w.store.AddContainer(start)
	if err != nil {
		return fmt.Errorf("write session start: %w", err)
	}

	w.sessionStart = start

	return nil
}

// WriteSessionCompletion derives the session completion record from the
// session, appends it, and caches it on the writer. Session storage only.
func (w *Writer) WriteSessionCompletion(session *containers.Session) error {
	err := w.checkWritable(TypeSession)
	if err != nil {
		return err
	}

	completion := session.CreateSessionCompletion()

	_, err = w.store.AddContainer(completion)
	if err != nil {
		return fmt.Errorf("write session completion: %w", err)
	}

	w.sessionCompletion = completion

	return nil
}

// WriteSessionConfiguration derives the session configuration record from
// the session, appends it, and caches it on the writer. Session storage only.
func (w *Writer) WriteSessionConfiguration(session *containers.Session) error {
	err := w.checkWritable(TypeSession)
	if err != nil {
		return err
	}

	configuration := session.CreateSessionConfiguration()

	_, err = w.store.AddContainer(configuration)
	if err != nil {
		return fmt.Errorf("write session configuration: %w", err)
	}

	w.sessionConfiguration = configuration

	return nil
}

// WriteTaskStart derives the task start record from the task, appends it,
// and caches it on the writer. Task storage only.
func (w *Writer) WriteTaskStart(task *containers.Task) error {
	err := w.checkWritable(TypeTask)
	if err != nil {
		return err
	}

	start := task.CreateTaskStart()

	_, err = w.store.AddContainer(start)
	if err != nil {
		return fmt.Errorf("write task start: %w", err)
	}

	w.taskStart = start

	return nil
}

// WriteTaskCompletion derives the task completion record from the task,
// appends it, and caches it on the writer. Task storage only.
func (w *Writer) WriteTaskCompletion(task *containers.Task) error {
	err := w.checkWritable(TypeTask)
	if err != nil {
		return err
	}

	completion := task.CreateTaskCompletion()

	_, err = w.store.AddContainer(completion)
	if err != nil {
		return fmt.Errorf("write task completion: %w", err)
	}

	w.taskCompletion = completion

	return nil
}

// SessionStart returns the cached session start record, if one was written.
func (w *Writer) SessionStart() *containers.SessionStart { return w.sessionStart }

// SessionCompletion returns the cached session completion record, if one
// was written.
func (w *Writer) SessionCompletion() *containers.SessionCompletion { return w.sessionCompletion }

// SessionConfiguration returns the cached session configuration record, if
// one was written.
func (w *Writer) SessionConfiguration() *containers.SessionConfiguration {
	return w.sessionConfiguration
}

// TaskStart returns the cached task start record, if one was written.
func (w *Writer) TaskStart() *containers.TaskStart { return w.taskStart }

// TaskCompletion returns the cached task completion record, if one was
// written.
func (w *Writer) TaskCompletion() *containers.TaskCompletion { return w.taskCompletion }

// readEventSourceAt reads the event source at index. A positional miss is
// not an error: it means no source has been written there yet, and the
// caller polls again later.
func (w *Writer) readEventSourceAt(index int) (*containers.EventSource, error) {
	c, err := w.store.ContainerByIndex(containers.KindEventSource, index)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	source, ok := c.(*containers.EventSource)
	if !ok {
		return nil, fmt.Errorf("%w: container at event source index %d has kind %s",
			ErrNotFound, index, c.ContainerKind())
	}

	return source, nil
}

// FirstWrittenEventSource returns the first event source written after the
// writer was opened, or nil when none has been written yet. On a successful
// read it resets the next-written cursor to the position after the first;
// on a miss the cursor stays at the first position, so a poller that mixes
// First and Next calls never skips a source.
func (w *Writer) FirstWrittenEventSource() (*containers.EventSource, error) {
	if w.store == nil {
		return nil, ErrNotOpen
	}

	source, err := w.readEventSourceAt(w.firstWrittenEventSourceIndex)
	if err != nil {
		return nil, err
	}

	if source == nil {
		w.writtenEventSourceIndex = w.firstWrittenEventSourceIndex

		return nil, nil
	}

	w.writtenEventSourceIndex = w.firstWrittenEventSourceIndex + 1

	return source, nil
}

// NextWrittenEventSource returns the next event source after the one the
// previous cursor read returned, or nil when none has been written yet.
// The cursor advances only on a successful read: a miss means "no more data
// yet" and the same position is retried on the next poll.
func (w *Writer) NextWrittenEventSource() (*containers.EventSource, error) {
	if w.store == nil {
		return nil, ErrNotOpen
	}

	source, err := w.readEventSourceAt(w.writtenEventSourceIndex)
	if err != nil {
		return nil, err
	}

	if source == nil {
		return nil, nil
	}

	w.writtenEventSourceIndex++

	return source, nil
}
