// Package syslog parses line-oriented system logs in RFC 3164 and RFC 5424
// style. Each parseable line becomes one event; lines that match no known
// format produce extraction warnings and parsing continues.
package syslog

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/parsers"
)

// Name is the registry name of the parser.
const Name = "syslog"

// DataType tags the event data this parser produces.
const DataType = "syslog:line"

// maxLineLength bounds scanner buffers against pathological log lines.
const maxLineLength = 1 << 20

// Parser emits one event per decodable syslog line.
type Parser struct {
	formats []lineFormat

	// DefaultYear fills in the year for formats that omit it (RFC 3164).
	DefaultYear int
}

// New returns a syslog parser with the default year set to the current one.
func New() *Parser {
	formats, err := loadPresets()
	if err != nil {
		// The presets are embedded in the binary; failing to load them is a
		// build defect, not a runtime condition.
		panic(err)
	}

	return &Parser{
		formats:     formats,
		DefaultYear: time.Now().UTC().Year(),
	}
}

// Name implements parsers.Parser.
func (p *Parser) Name() string { return Name }

// Supports implements parsers.Parser.
func (p *Parser) Supports(path string) bool {
	base := strings.ToLower(filepath.Base(path))

	if filepath.Ext(base) == ".log" {
		return true
	}

	return base == "messages" || strings.HasPrefix(base, "syslog")
}

// Parse implements parsers.Parser.
func (p *Parser) Parse(ctx context.Context, mediator *parsers.Mediator, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineLength)

	lineNumber := 0

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lineNumber++

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		parseErr := p.parseLine(mediator, line, lineNumber)
		if parseErr != nil {
			return parseErr
		}
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return fmt.Errorf("scan %s: %w", path, scanErr)
	}

	return nil
}

// parseLine matches one line against the known formats. A line matching no
// format is a warning, not an error.
func (p *Parser) parseLine(mediator *parsers.Mediator, line string, lineNumber int) error {
	for _, format := range p.formats {
		match := format.pattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		fields := namedGroups(format.pattern, match)

		timestamp, err := p.parseTime(format, fields["time"])
		if err != nil {
			return mediator.ProduceExtractionWarning(fmt.Sprintf(
				"line %d: unparseable %s timestamp %q", lineNumber, format.name, fields["time"]))
		}

		data := containers.NewEventData(DataType)
		data.Values["hostname"] = fields["host"]
		data.Values["reporter"] = fields["reporter"]
		data.Values["pid"] = fields["pid"]
		data.Values["body"] = fields["body"]

		event := containers.NewEvent()
		event.Timestamp = timestamp.UTC()
		event.TimestampDesc = containers.TimeDescriptionRecorded

		return mediator.ProduceEventWithEventData(event, data)
	}

	return mediator.ProduceExtractionWarning(fmt.Sprintf(
		"line %d: no syslog format matched", lineNumber))
}

// parseTime parses the matched time field, filling in the default year for
// formats that omit it.
func (p *Parser) parseTime(format lineFormat, value string) (time.Time, error) {
	parsed, err := time.Parse(format.layout, value)
	if err != nil {
		return time.Time{}, err
	}

	if format.yearMissing {
		parsed = parsed.AddDate(p.DefaultYear-parsed.Year(), 0, 0)
	}

	return parsed, nil
}

// namedGroups maps the pattern's named groups to their matched values.
func namedGroups(pattern *regexp.Regexp, match []string) map[string]string {
	fields := make(map[string]string)

	for i, name := range pattern.SubexpNames() {
		if name != "" && i < len(match) {
			fields[name] = match[i]
		}
	}

	return fields
}

func init() {
	parsers.MustRegister(New())
}
