// Package filestat parses filesystem metadata: it emits one event per
// available timestamp of a file entry, all sharing a single event data
// container with the stat field values.
package filestat

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/parsers"
)

// Name is the registry name of the parser.
const Name = "filestat"

// DataType tags the event data this parser produces.
const DataType = "fs:stat"

// Parser emits filesystem timestamp events.
type Parser struct{}

// New returns the filestat parser.
func New() *Parser {
	return &Parser{}
}

// Name implements parsers.Parser.
func (p *Parser) Name() string { return Name }

// Supports implements parsers.Parser. Every file entry has stat metadata.
func (p *Parser) Supports(string) bool { return true }

// Parse implements parsers.Parser.
func (p *Parser) Parse(_ context.Context, mediator *parsers.Mediator, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	data := containers.NewEventData(DataType)
	data.Values["file_name"] = path
	data.Values["file_size"] = strconv.FormatInt(info.Size(), 10)
	data.Values["file_mode"] = info.Mode().String()

	times := entryTimes(info)

	for _, entry := range []struct {
		when time.Time
		desc string
	}{
		{times.modification, containers.TimeDescriptionWritten},
		{times.access, containers.TimeDescriptionAccess},
		{times.change, containers.TimeDescriptionChange},
	} {
		if entry.when.IsZero() {
			continue
		}

		event := containers.NewEvent()
		event.Timestamp = entry.when.UTC()
		event.TimestampDesc = entry.desc

		produceErr := mediator.ProduceEventWithEventData(event, data)
		if produceErr != nil {
			return produceErr
		}
	}

	return nil
}

// statTimes holds the timestamps recoverable from a file entry. Fields the
// platform cannot provide stay zero and produce no event.
type statTimes struct {
	modification time.Time
	access       time.Time
	change       time.Time
}

func init() {
	parsers.MustRegister(New())
}
