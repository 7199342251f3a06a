// Package export renders the contents of a session store for consumers:
// machine-readable JSON validated against a schema, terminal summary
// tables, and an HTML timeline page.
package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/storage"
)

// EventRow is one event joined with its resolved event data.
type EventRow struct {
	Timestamp     time.Time         `json:"timestamp"`
	TimestampDesc string            `json:"timestamp_desc"`
	DataType      string            `json:"data_type"`
	ParserChain   string            `json:"parser_chain"`
	Values        map[string]string `json:"values"`
}

// WarningRow is one extraction warning.
type WarningRow struct {
	Message     string `json:"message"`
	ParserChain string `json:"parser_chain"`
	Path        string `json:"path"`
}

// AnalysisRow is one analysis report.
type AnalysisRow struct {
	PluginName string    `json:"plugin_name"`
	Text       string    `json:"text"`
	CompiledAt time.Time `json:"compiled_at"`
}

// Report is the exportable view of a session store.
type Report struct {
	// Session describes the run, when the store holds a session start.
	Session *SessionInfo `json:"session,omitempty"`
	// Events holds every event in append order, joined with its data.
	Events []EventRow `json:"events"`
	// Warnings holds every extraction warning in append order.
	Warnings []WarningRow `json:"warnings"`
	// Analyses holds every analysis report in append order.
	Analyses []AnalysisRow `json:"analyses"`
	// IntegrityErrors lists events whose event-data reference did not
	// resolve. A non-empty list is a data-integrity defect in the store.
	IntegrityErrors []string `json:"integrity_errors,omitempty"`
}

// SessionInfo summarizes the session lifecycle records in a store.
type SessionInfo struct {
	Identifier     string    `json:"identifier"`
	ProductName    string    `json:"product_name"`
	ProductVersion string    `json:"product_version"`
	StartTime      time.Time `json:"start_time"`
	CompletionTime time.Time `json:"completion_time,omitzero"`
	Aborted        bool      `json:"aborted"`
}

// BuildReport assembles the exportable view from an open store. Dangling
// event-data references are collected into IntegrityErrors rather than
// aborting the export or being silently dropped.
func BuildReport(store storage.Store) (*Report, error) {
	report := &Report{
		Events:   []EventRow{},
		Warnings: []WarningRow{},
		Analyses: []AnalysisRow{},
	}

	err := collectSession(store, report)
	if err != nil {
		return nil, err
	}

	err = collectEvents(store, report)
	if err != nil {
		return nil, err
	}

	err = collectWarnings(store, report)
	if err != nil {
		return nil, err
	}

	err = collectAnalyses(store, report)
	if err != nil {
		return nil, err
	}

	return report, nil
}

func collectSession(store storage.Store, report *Report) error {
	c, err := store.ContainerByIndex(containers.KindSessionStart, 0)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("read session start: %w", err)
	}

	start, ok := c.(*containers.SessionStart)
	if !ok {
		return nil
	}

	info := &SessionInfo{
		Identifier:     start.SessionIdentifier,
		ProductName:    start.ProductName,
		ProductVersion: start.ProductVersion,
		StartTime:      start.StartTime,
	}

	c, err = store.ContainerByIndex(containers.KindSessionCompletion, 0)
	if err == nil {
		if completion, ok := c.(*containers.SessionCompletion); ok {
			info.CompletionTime = completion.CompletionTime
			info.Aborted = completion.Aborted
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("read session completion: %w", err)
	}

	report.Session = info

	return nil
}

func collectEvents(store storage.Store, report *Report) error {
	events, err := store.Containers(containers.KindEvent)
	if err != nil {
		return fmt.Errorf("iterate events: %w", err)
	}

	for c := range events {
		event, ok := c.(*containers.Event)
		if !ok {
			continue
		}

		row := EventRow{
			Timestamp:     event.Timestamp,
			TimestampDesc: event.TimestampDesc,
		}

		id, linked := event.EventDataIdentifier()
		if !linked {
			eventID, _ := event.Identifier()
			report.IntegrityErrors = append(report.IntegrityErrors,
				fmt.Sprintf("event %d has no event data reference", eventID))

			continue
		}

		dataContainer, err := store.ContainerByIdentifier(containers.KindEventData, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				eventID, _ := event.Identifier()
				report.IntegrityErrors = append(report.IntegrityErrors,
					fmt.Sprintf("event %d references missing event data %d", eventID, id))

				continue
			}

			return fmt.Errorf("resolve event data %d: %w", id, err)
		}

		if data, ok := dataContainer.(*containers.EventData); ok {
			row.DataType = data.DataType
			row.ParserChain = data.ParserChain
			row.Values = data.Values
		}

		report.Events = append(report.Events, row)
	}

	return nil
}

func collectWarnings(store storage.Store, report *Report) error {
	warnings, err := store.Containers(containers.KindExtractionWarning)
	if err != nil {
		return fmt.Errorf("iterate warnings: %w", err)
	}

	for c := range warnings {
		warning, ok := c.(*containers.ExtractionWarning)
		if !ok {
			continue
		}

		report.Warnings = append(report.Warnings, WarningRow{
			Message:     warning.Message,
			ParserChain: warning.ParserChain,
			Path:        warning.Path,
		})
	}

	return nil
}

func collectAnalyses(store storage.Store, report *Report) error {
	analyses, err := store.Containers(containers.KindAnalysisReport)
	if err != nil {
		return fmt.Errorf("iterate analysis reports: %w", err)
	}

	for c := range analyses {
		analysisReport, ok := c.(*containers.AnalysisReport)
		if !ok {
			continue
		}

		report.Analyses = append(report.Analyses, AnalysisRow{
			PluginName: analysisReport.PluginName,
			Text:       analysisReport.Text,
			CompiledAt: analysisReport.CompiledAt,
		})
	}

	return nil
}
