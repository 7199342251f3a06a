// Package storage defines the attribute container store contract shared by
// all backends, and the session/task-aware storage writer that producers use
// to populate a store.
package storage

import (
	"errors"
	"iter"

	"github.com/sifterlab/sifter/pkg/containers"
)

// Sentinel errors for store and writer protocol violations. All are
// recoverable by the caller: a failed call does not poison the store.
var (
	// ErrNotOpen is returned by any operation attempted before Open or
	// after Close.
	ErrNotOpen = errors.New("storage: not open")
	// ErrAlreadyOpen is returned by Open on an already-open store or writer.
	ErrAlreadyOpen = errors.New("storage: already open")
	// ErrNotFound is returned by lookups that miss. Cursor readers treat a
	// positional miss as "no data yet"; identifier-resolution callers treat
	// it as a data-integrity defect and surface it.
	ErrNotFound = errors.New("storage: container not found")
	// ErrUnsupportedStorageType is returned when a session-only or
	// task-only write is attempted on a writer of the other storage type.
	ErrUnsupportedStorageType = errors.New("storage: not supported by storage type")
)

// Store holds attribute containers of all kinds, keyed by kind and
// identifier. Identifiers start at 0 and increase by 1 per kind, with
// independent counters per kind; append order is preserved and observable
// through positional lookups.
//
// A store requires exclusive access per open lifetime: callers must not
// invoke operations concurrently from multiple goroutines, with the single
// exception of positional reads polled by a scheduler goroutine while one
// producer appends (the sequential-cursor pattern), which implementations
// must support.
type Store interface {
	// Open prepares the store for use. It must be called exactly once
	// before any other operation; a second call fails with ErrAlreadyOpen.
	Open() error
	// Close releases the store. Operations after Close fail with
	// ErrNotOpen. A durable backend may block on I/O here.
	Close() error
	// AddContainer appends a container, assigns it the next identifier for
	// its kind, and returns the assigned identifier.
	AddContainer(c containers.Container) (int64, error)
	// ContainerByIdentifier returns the container of the given kind with
	// the given store-assigned identifier, or ErrNotFound.
	ContainerByIdentifier(kind containers.Kind, id int64) (containers.Container, error)
	// ContainerByIndex returns the container at the given 0-based position
	// in append order for the kind, or ErrNotFound when the index is out of
	// range. This is the primitive behind sequential cursors.
	ContainerByIndex(kind containers.Kind, index int) (containers.Container, error)
	// CountContainers returns the number of containers of the kind.
	CountContainers(kind containers.Kind) (int, error)
	// Kinds returns every kind the store currently holds at least one
	// container of, default kinds first in their fixed order, then custom
	// kinds lexically. Durable backends and mergers iterate this rather
	// than the default kind list so custom registered kinds are never
	// dropped.
	Kinds() ([]containers.Kind, error)
	// Containers returns a restartable sequence over all containers of the
	// kind in append order. Each call yields a fresh sequence from the
	// beginning.
	Containers(kind containers.Kind) (iter.Seq[containers.Container], error)
}

// Merger is implemented by durable stores that can absorb the full contents
// of another store, reassigning identifiers in their own counters and
// rewriting cross-container references. The merge is all-or-nothing: a
// failure leaves the destination in its pre-merge state.
type Merger interface {
	MergeFrom(src Store) error
}
