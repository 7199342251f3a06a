// Package containers defines the attribute container types held by a store:
// events, event data, event sources, warnings, reports, and the session/task
// lifecycle records, together with the process-wide container kind registry.
package containers

import "slices"

// Kind identifies a container kind. Every container carries exactly one kind
// for its whole lifetime; stores key their per-kind identifier counters on it.
type Kind string

// Container kinds known to the registry.
const (
	KindEvent                Kind = "event"
	KindEventData            Kind = "event_data"
	KindEventSource          Kind = "event_source"
	KindExtractionWarning    Kind = "extraction_warning"
	KindAnalysisReport       Kind = "analysis_report"
	KindSessionStart         Kind = "session_start"
	KindSessionCompletion    Kind = "session_completion"
	KindSessionConfiguration Kind = "session_configuration"
	KindTaskStart            Kind = "task_start"
	KindTaskCompletion       Kind = "task_completion"
)

// Kinds returns all registered default kinds in a fixed, deterministic order.
// Event data precedes events so that stores processing kinds in this order
// always see reference targets before the containers that point at them.
func Kinds() []Kind {
	return []Kind{
		KindEventData,
		KindEvent,
		KindEventSource,
		KindExtractionWarning,
		KindAnalysisReport,
		KindSessionStart,
		KindSessionCompletion,
		KindSessionConfiguration,
		KindTaskStart,
		KindTaskCompletion,
	}
}

// OrderKinds arranges kinds in store processing order: the default kinds
// first, in Kinds() order, then any custom kinds lexically. Reference
// targets therefore still precede the containers that point at them no
// matter which custom kinds a store holds.
func OrderKinds(kinds []Kind) []Kind {
	remaining := make(map[Kind]bool, len(kinds))
	for _, kind := range kinds {
		remaining[kind] = true
	}

	ordered := make([]Kind, 0, len(kinds))

	for _, kind := range Kinds() {
		if remaining[kind] {
			ordered = append(ordered, kind)
			delete(remaining, kind)
		}
	}

	extra := make([]Kind, 0, len(remaining))
	for kind := range remaining {
		extra = append(extra, kind)
	}

	slices.Sort(extra)

	return append(ordered, extra...)
}

// Container is the interface every attribute container implements.
//
// A container's identifier is assigned by the store at append time and is
// stable for the lifetime of that store; before the first append, Identifier
// reports false.
type Container interface {
	// ContainerKind returns the immutable kind tag.
	ContainerKind() Kind
	// Identifier returns the store-assigned identifier and whether one has
	// been assigned yet.
	Identifier() (int64, bool)
	// SetIdentifier assigns the identifier. Called by stores on append and
	// during merge identifier rewriting; not intended for general use.
	SetIdentifier(id int64)
}

// identifier is the embeddable identifier state shared by all containers.
// The fields are unexported so serialization codecs skip them; persistent
// backends record the identifier in their record envelope instead.
type identifier struct {
	id       int64
	assigned bool
}

// Identifier implements Container.Identifier.
func (i *identifier) Identifier() (int64, bool) {
	return i.id, i.assigned
}

// SetIdentifier implements Container.SetIdentifier.
func (i *identifier) SetIdentifier(id int64) {
	i.id = id
	i.assigned = true
}
