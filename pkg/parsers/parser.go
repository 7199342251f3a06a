// Package parsers defines the parser interface, the process-wide parser
// registry, and the mediator through which parsers report extracted
// containers to a storage writer.
package parsers

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors for registry misuse; startup-time defects.
var (
	ErrUnknownParser   = errors.New("parsers: unknown parser")
	ErrDuplicateParser = errors.New("parsers: duplicate parser registration")
)

// Parser decodes raw evidence into attribute containers. Parsers construct
// container instances and hand them to the mediator; they never touch the
// store directly.
type Parser interface {
	// Name returns the registry name of the parser.
	Name() string
	// Supports reports whether the parser wants to look at the file.
	Supports(path string) bool
	// Parse decodes the file at path, producing events, event data and
	// warnings through the mediator. A decoding problem inside the file is
	// reported as an extraction warning, not an error; the returned error
	// is reserved for environmental failures such as an unreadable file.
	Parse(ctx context.Context, mediator *Mediator, path string) error
}

// registry is populated from parser package init functions and read-only
// afterwards.
var registry = make(map[string]Parser)

// Register adds a parser under its name. Registering a second parser under
// an already-used name fails with ErrDuplicateParser.
func Register(parser Parser) error {
	name := parser.Name()

	_, ok := registry[name]
	if ok {
		return fmt.Errorf("%w: %q", ErrDuplicateParser, name)
	}

	registry[name] = parser

	return nil
}

// MustRegister is Register for init-time use; it panics on conflict.
func MustRegister(parser Parser) {
	err := Register(parser)
	if err != nil {
		panic(err)
	}
}

// ByName returns the registered parser with the given name.
func ByName(name string) (Parser, error) {
	parser, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParser, name)
	}

	return parser, nil
}

// ByNames resolves a list of parser names, preserving order.
func ByNames(names []string) ([]Parser, error) {
	resolved := make([]Parser, 0, len(names))

	for _, name := range names {
		parser, err := ByName(name)
		if err != nil {
			return nil, err
		}

		resolved = append(resolved, parser)
	}

	return resolved, nil
}

// Names returns all registered parser names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))

	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
