package containers

import "time"

// Timestamp description tags distinguishing which filesystem or log semantic
// an event's timestamp carries.
const (
	TimeDescriptionWritten  = "Content Modification Time"
	TimeDescriptionAccess   = "Last Access Time"
	TimeDescriptionChange   = "Metadata Modification Time"
	TimeDescriptionCreation = "Creation Time"
	TimeDescriptionRecorded = "Recorded Time"
)

// noIdentifier marks an unset cross-container reference.
const noIdentifier = int64(-1)

// Event is a single dated occurrence extracted from evidence. It carries the
// timestamp and a reference, by identifier, to the EventData container holding
// the parsed field values. The reference is a lookup edge, not ownership: both
// containers are owned by the store and serialized independently.
type Event struct {
	identifier

	// Timestamp is the moment the event describes, in UTC.
	Timestamp time.Time `cbor:"timestamp" json:"timestamp"`
	// TimestampDesc tags which semantic the timestamp carries, for example
	// TimeDescriptionWritten.
	TimestampDesc string `cbor:"timestamp_desc" json:"timestamp_desc"`
	// DataIdentifier is the store identifier of the linked EventData
	// container, or -1 when not yet linked.
	DataIdentifier int64 `cbor:"data_identifier" json:"data_identifier"`
}

// NewEvent returns an event with no event-data reference.
func NewEvent() *Event {
	return &Event{DataIdentifier: noIdentifier}
}

// ContainerKind implements Container.
func (e *Event) ContainerKind() Kind { return KindEvent }

// SetEventDataIdentifier links the event to an EventData container by the
// identifier the store returned when the event data was appended. The core
// does not auto-link; producers must call this before appending the event.
func (e *Event) SetEventDataIdentifier(id int64) {
	e.DataIdentifier = id
}

// EventDataIdentifier returns the linked event-data identifier and whether
// the link has been set.
func (e *Event) EventDataIdentifier() (int64, bool) {
	if e.DataIdentifier == noIdentifier {
		return 0, false
	}

	return e.DataIdentifier, true
}

// EventData holds the parsed field values shared by one or more events.
// DataType names the event-data subkind contributed by a parser (for example
// "fs:stat" or "syslog:line") and drives downstream message formatting.
type EventData struct {
	identifier

	// DataType is the parser-defined subkind tag.
	DataType string `cbor:"data_type" json:"data_type"`
	// ParserChain identifies the parser/plugin chain that produced the data.
	ParserChain string `cbor:"parser_chain" json:"parser_chain"`
	// Values holds the parsed, named field values.
	Values map[string]string `cbor:"values" json:"values"`
}

// NewEventData returns event data of the given data type with an empty
// value map.
func NewEventData(dataType string) *EventData {
	return &EventData{
		DataType: dataType,
		Values:   make(map[string]string),
	}
}

// ContainerKind implements Container.
func (d *EventData) ContainerKind() Kind { return KindEventData }

// EventSource describes a unit of extraction work discovered during
// processing, typically a file to parse or a directory to recurse into.
// Sources are consumed as a work queue: stores retrieve them in the exact
// order they were appended, via the writer's sequential cursor.
type EventSource struct {
	identifier

	// Path locates the evidence this source refers to.
	Path string `cbor:"path" json:"path"`
	// SourceType distinguishes files from directories and other entry types.
	SourceType string `cbor:"source_type" json:"source_type"`
}

// Event source types.
const (
	SourceTypeFile      = "file"
	SourceTypeDirectory = "directory"
)

// ContainerKind implements Container.
func (s *EventSource) ContainerKind() Kind { return KindEventSource }
