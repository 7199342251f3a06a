package containers

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Sentinel errors for registry misuse. Both indicate startup-time defects:
// an analysis or parser package registering container kinds incorrectly.
var (
	ErrUnknownContainerKind  = errors.New("containers: unknown container kind")
	ErrDuplicateRegistration = errors.New("containers: duplicate registration")
)

// Factory constructs a new, empty container of one kind.
type Factory func() Container

// registry is populated during package initialization and by parser or
// analysis packages registering their own event-data kinds. Registration
// can happen from concurrently initialized packages, so access is guarded
// by registryMu.
var (
	registryMu sync.RWMutex
	registry   = make(map[Kind]Factory)
)

// Register associates a kind with its factory. Re-registering the same
// factory function for a kind is a no-op; registering a different factory
// for an already-registered kind fails with ErrDuplicateRegistration.
func Register(kind Kind, factory Factory) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	existing, ok := registry[kind]
	if !ok {
		registry[kind] = factory

		return nil
	}

	if reflect.ValueOf(existing).Pointer() == reflect.ValueOf(factory).Pointer() {
		return nil
	}

	return fmt.Errorf("%w: kind %q already has a factory", ErrDuplicateRegistration, kind)
}

// MustRegister is Register for init-time use; it panics on conflict, aborting
// initialization rather than deferring the defect to per-call handling.
func MustRegister(kind Kind, factory Factory) {
	err := Register(kind, factory)
	if err != nil {
		panic(err)
	}
}

// Create returns a new, empty container of the given kind, or
// ErrUnknownContainerKind if no factory is registered for it.
func Create(kind Kind) (Container, error) {
	registryMu.RLock()
	factory, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContainerKind, kind)
	}

	return factory(), nil
}

// Registered reports whether a factory exists for the kind.
func Registered(kind Kind) bool {
	registryMu.RLock()
	_, ok := registry[kind]
	registryMu.RUnlock()

	return ok
}

func init() {
	MustRegister(KindEvent, func() Container { return NewEvent() })
	MustRegister(KindEventData, func() Container { return NewEventData("") })
	MustRegister(KindEventSource, func() Container { return &EventSource{} })
	MustRegister(KindExtractionWarning, func() Container { return &ExtractionWarning{} })
	MustRegister(KindAnalysisReport, func() Container { return &AnalysisReport{} })
	MustRegister(KindSessionStart, func() Container { return &SessionStart{} })
	MustRegister(KindSessionCompletion, func() Container { return &SessionCompletion{} })
	MustRegister(KindSessionConfiguration, func() Container { return &SessionConfiguration{} })
	MustRegister(KindTaskStart, func() Container { return &TaskStart{} })
	MustRegister(KindTaskCompletion, func() Container { return &TaskCompletion{} })
}
