package file

import (
	"fmt"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/storage"
)

// MergeFrom appends every container from src, kind by kind in each kind's
// append order, reassigning fresh identifiers in this store's own counters
// and rewriting cross-container references to the new identifiers.
//
// The merge is staged: clones are built and every reference rewritten
// before the first container is committed, so any failure leaves this store
// exactly in its pre-merge state. A partially merged store is never
// observable.
func (s *Store) MergeFrom(src storage.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return storage.ErrNotOpen
	}

	staged, remap, err := s.stageLocked(src)
	if err != nil {
		return err
	}

	err = rewriteReferences(staged, remap)
	if err != nil {
		return err
	}

	// Commit. In-memory appends cannot fail, so once rewriting succeeded
	// the merge as a whole succeeds. Append order matches the planned
	// identifiers in remap because staging walked kinds in the same order.
	for _, c := range staged {
		s.appendLocked(c)
	}

	return nil
}

// stageLocked clones every container from src and plans the identifier each
// clone will receive in this store. Caller holds mu.
func (s *Store) stageLocked(src storage.Store) ([]containers.Container, map[containers.Kind]map[int64]int64, error) {
	var staged []containers.Container

	remap := make(map[containers.Kind]map[int64]int64)

	srcKinds, err := src.Kinds()
	if err != nil {
		return nil, nil, fmt.Errorf("list source kinds: %w", err)
	}

	for _, kind := range srcKinds {
		count, err := src.CountContainers(kind)
		if err != nil {
			return nil, nil, fmt.Errorf("count %s containers in source: %w", kind, err)
		}

		remap[kind] = make(map[int64]int64, count)
		nextID := int64(len(s.held[kind]))

		for index := range count {
			c, err := src.ContainerByIndex(kind, index)
			if err != nil {
				return nil, nil, fmt.Errorf("read %s container %d from source: %w", kind, index, err)
			}

			clone, err := cloneContainer(c)
			if err != nil {
				return nil, nil, err
			}

			oldID, ok := c.Identifier()
			if !ok {
				oldID = int64(index)
			}

			remap[kind][oldID] = nextID
			nextID++

			staged = append(staged, clone)
		}
	}

	return staged, remap, nil
}

// rewriteReferences rewrites every cross-container reference in the staged
// clones through the identifier remap. A reference whose target is absent
// from the source store is a data-integrity defect and aborts the merge.
func rewriteReferences(staged []containers.Container, remap map[containers.Kind]map[int64]int64) error {
	for _, c := range staged {
		event, ok := c.(*containers.Event)
		if !ok {
			continue
		}

		oldID, linked := event.EventDataIdentifier()
		if !linked {
			continue
		}

		newID, found := remap[containers.KindEventData][oldID]
		if !found {
			return fmt.Errorf("%w: event references event data %d absent from source",
				storage.ErrNotFound, oldID)
		}

		event.SetEventDataIdentifier(newID)
	}

	return nil
}
