// Package fake provides the in-memory attribute container store, used for
// tests and for the isolated per-task buffering that extraction workers
// merge into the session store when a task completes.
package fake

import (
	"iter"
	"sync"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/storage"
)

// Store holds containers entirely in memory. Identifiers equal the append
// position within a kind, so both lookup forms resolve through the same
// per-kind slice.
//
// The index mutex exists solely so that a scheduler goroutine can poll
// positional reads while one producer goroutine appends; the store makes no
// broader thread-safety promise.
type Store struct {
	mu   sync.Mutex
	open bool
	held map[containers.Kind][]containers.Container
}

// NewStore returns a closed, empty in-memory store.
func NewStore() *Store {
	return &Store{
		held: make(map[containers.Kind][]containers.Container),
	}
}

// Open implements storage.Store.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return storage.ErrAlreadyOpen
	}

	s.open = true

	return nil
}

// Close implements storage.Store. The held containers are discarded:
// in-memory contents do not outlive the store's open window.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return storage.ErrNotOpen
	}

	s.open = false
	s.held = make(map[containers.Kind][]containers.Container)

	return nil
}

// AddContainer implements storage.Store.
func (s *Store) AddContainer(c containers.Container) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return 0, storage.ErrNotOpen
	}

	kind := c.ContainerKind()
	id := int64(len(s.held[kind]))

	c.SetIdentifier(id)
	s.held[kind] = append(s.held[kind], c)

	return id, nil
}

// ContainerByIdentifier implements storage.Store.
func (s *Store) ContainerByIdentifier(kind containers.Kind, id int64) (containers.Container, error) {
	return s.containerAt(kind, int(id))
}

// ContainerByIndex implements storage.Store.
func (s *Store) ContainerByIndex(kind containers.Kind, index int) (containers.Container, error) {
	return s.containerAt(kind, index)
}

func (s *Store) containerAt(kind containers.Kind, position int) (containers.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, storage.ErrNotOpen
	}

	held := s.held[kind]
	if position < 0 || position >= len(held) {
		return nil, storage.ErrNotFound
	}

	return held[position], nil
}

// CountContainers implements storage.Store.
func (s *Store) CountContainers(kind containers.Kind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return 0, storage.ErrNotOpen
	}

	return len(s.held[kind]), nil
}

// Kinds implements storage.Store.
func (s *Store) Kinds() ([]containers.Kind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, storage.ErrNotOpen
	}

	kinds := make([]containers.Kind, 0, len(s.held))
	for kind, held := range s.held {
		if len(held) > 0 {
			kinds = append(kinds, kind)
		}
	}

	return containers.OrderKinds(kinds), nil
}

// Containers implements storage.Store. The sequence reads by increasing
// position, so containers appended by the same goroutine during iteration
// are included.
func (s *Store) Containers(kind containers.Kind) (iter.Seq[containers.Container], error) {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()

	if !open {
		return nil, storage.ErrNotOpen
	}

	seq := func(yield func(containers.Container) bool) {
		for i := 0; ; i++ {
			c, err := s.containerAt(kind, i)
			if err != nil {
				return
			}

			if !yield(c) {
				return
			}
		}
	}

	return seq, nil
}
