// Package analysis defines analysis plugins: consumers that examine the
// events in a store and compile analysis report containers.
package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/storage"
)

// Sentinel errors for registry misuse; startup-time defects.
var (
	ErrUnknownPlugin   = errors.New("analysis: unknown plugin")
	ErrDuplicatePlugin = errors.New("analysis: duplicate plugin registration")
)

// Plugin examines events one at a time and compiles a report at the end of
// the run.
type Plugin interface {
	// Name returns the registry name of the plugin.
	Name() string
	// ExamineEvent inspects one event together with its resolved event data.
	ExamineEvent(event *containers.Event, data *containers.EventData)
	// CompileReport produces the analysis report for everything examined.
	CompileReport() *containers.AnalysisReport
}

// Factory constructs a fresh plugin instance. Plugins accumulate state
// while examining events, so the registry hands out new instances rather
// than sharing one across runs.
type Factory func() Plugin

// registry is populated from plugin package init functions and read-only
// afterwards.
var registry = make(map[string]Factory)

// Register adds a plugin factory under the given name.
func Register(name string, factory Factory) error {
	_, ok := registry[name]
	if ok {
		return fmt.Errorf("%w: %q", ErrDuplicatePlugin, name)
	}

	registry[name] = factory

	return nil
}

// MustRegister is Register for init-time use; it panics on conflict.
func MustRegister(name string, factory Factory) {
	err := Register(name, factory)
	if err != nil {
		panic(err)
	}
}

// ByName returns a fresh instance of the registered plugin with the given
// name.
func ByName(name string) (Plugin, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
	}

	return factory(), nil
}

// Names returns all registered plugin names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))

	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// RunPlugins feeds every event in the store, paired with its resolved event
// data, through the plugins and appends the compiled reports through the
// writer.
//
// A dangling event-data reference is a data-integrity defect in the store:
// it is surfaced as an extraction warning and logged, and the event is
// skipped, rather than aborting the run or being silently tolerated.
func RunPlugins(store storage.Store, writer *storage.Writer, plugins []Plugin, logger *slog.Logger) error {
	events, err := store.Containers(containers.KindEvent)
	if err != nil {
		return fmt.Errorf("iterate events: %w", err)
	}

	for c := range events {
		event, ok := c.(*containers.Event)
		if !ok {
			continue
		}

		data, err := resolveEventData(store, event)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}

			id, _ := event.Identifier()
			logger.Warn("dangling event data reference", "event", id)

			warning := &containers.ExtractionWarning{
				Message:     fmt.Sprintf("event %d references missing event data", id),
				ParserChain: "analysis",
			}

			_, warnErr := writer.AddExtractionWarning(warning)
			if warnErr != nil {
				return fmt.Errorf("write data integrity warning: %w", warnErr)
			}

			continue
		}

		for _, plugin := range plugins {
			plugin.ExamineEvent(event, data)
		}
	}

	for _, plugin := range plugins {
		_, err := writer.AddAnalysisReport(plugin.CompileReport())
		if err != nil {
			return fmt.Errorf("write %s report: %w", plugin.Name(), err)
		}
	}

	return nil
}

// resolveEventData looks up the event data an event references.
func resolveEventData(store storage.Store, event *containers.Event) (*containers.EventData, error) {
	id, linked := event.EventDataIdentifier()
	if !linked {
		return nil, fmt.Errorf("%w: event has no event data reference", storage.ErrNotFound)
	}

	c, err := store.ContainerByIdentifier(containers.KindEventData, id)
	if err != nil {
		return nil, fmt.Errorf("resolve event data %d: %w", id, err)
	}

	data, ok := c.(*containers.EventData)
	if !ok {
		return nil, fmt.Errorf("%w: container %d is not event data", storage.ErrNotFound, id)
	}

	return data, nil
}
