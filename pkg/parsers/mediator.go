package parsers

import (
	"fmt"
	"strings"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/storage"
)

// chainSeparator joins nested parser names into a parser chain string.
const chainSeparator = "/"

// Mediator is the reporting surface handed to parsers. It wraps a storage
// writer, maintains the active parser chain, and links events to their
// event data so parsers never handle raw identifiers themselves.
type Mediator struct {
	writer *storage.Writer

	chain       []string
	currentPath string

	eventsProduced   int
	warningsProduced int
	sourcesProduced  int
}

// NewMediator returns a mediator reporting to the given open writer.
func NewMediator(writer *storage.Writer) *Mediator {
	return &Mediator{writer: writer}
}

// SetCurrentPath records the evidence path parsers are currently decoding;
// warnings produced without an explicit path attach to it.
func (m *Mediator) SetCurrentPath(path string) {
	m.currentPath = path
}

// CurrentPath returns the evidence path being decoded.
func (m *Mediator) CurrentPath() string {
	return m.currentPath
}

// PushParser appends a parser name to the active chain. Parsers that invoke
// sub-parsers push before delegating and pop after.
func (m *Mediator) PushParser(name string) {
	m.chain = append(m.chain, name)
}

// PopParser removes the innermost parser name from the chain.
func (m *Mediator) PopParser() {
	if len(m.chain) > 0 {
		m.chain = m.chain[:len(m.chain)-1]
	}
}

// ParserChain returns the active chain as a single string.
func (m *Mediator) ParserChain() string {
	return strings.Join(m.chain, chainSeparator)
}

// ProduceEventWithEventData appends the event data (unless an earlier call
// already appended it), links the event to it by the assigned identifier,
// and appends the event. Sharing one EventData across several events is the
// normal pattern for multi-timestamp sources.
func (m *Mediator) ProduceEventWithEventData(event *containers.Event, data *containers.EventData) error {
	if data.ParserChain == "" {
		data.ParserChain = m.ParserChain()
	}

	id, assigned := data.Identifier()
	if !assigned {
		var err error

		id, err = m.writer.AddEventData(data)
		if err != nil {
			return fmt.Errorf("produce event data: %w", err)
		}
	}

	event.SetEventDataIdentifier(id)

	_, err := m.writer.AddEvent(event)
	if err != nil {
		return fmt.Errorf("produce event: %w", err)
	}

	m.eventsProduced++

	return nil
}

// ProduceEventSource appends a discovered unit of extraction work.
func (m *Mediator) ProduceEventSource(source *containers.EventSource) error {
	_, err := m.writer.AddEventSource(source)
	if err != nil {
		return fmt.Errorf("produce event source: %w", err)
	}

	m.sourcesProduced++

	return nil
}

// ProduceExtractionWarning appends a non-fatal diagnostic attributed to the
// active parser chain and the current evidence path.
func (m *Mediator) ProduceExtractionWarning(message string) error {
	warning := &containers.ExtractionWarning{
		Message:     message,
		ParserChain: m.ParserChain(),
		Path:        m.currentPath,
	}

	_, err := m.writer.AddExtractionWarning(warning)
	if err != nil {
		return fmt.Errorf("produce extraction warning: %w", err)
	}

	m.warningsProduced++

	return nil
}

// EventsProduced returns the number of events reported so far.
func (m *Mediator) EventsProduced() int { return m.eventsProduced }

// WarningsProduced returns the number of warnings reported so far.
func (m *Mediator) WarningsProduced() int { return m.warningsProduced }

// SourcesProduced returns the number of event sources reported so far.
func (m *Mediator) SourcesProduced() int { return m.sourcesProduced }
