package containers

import (
	"time"

	"github.com/google/uuid"
)

// Session is the root scope of one end-to-end processing run. It is a value
// record, not a container itself: the writer derives the one-shot
// SessionStart, SessionCompletion, and SessionConfiguration containers from
// it and persists those.
type Session struct {
	// Identifier uniquely names the session across stores.
	Identifier string
	// ProductName and ProductVersion identify the tool that ran the session.
	ProductName    string
	ProductVersion string
	// StartTime is when the session began, in UTC.
	StartTime time.Time
	// CompletionTime is when the session ended; zero while running.
	CompletionTime time.Time
	// Aborted reports whether the session terminated before completing.
	Aborted bool
	// EnabledParsers lists the parser names active for this session.
	EnabledParsers []string
	// WorkerCount is the number of parallel extraction workers.
	WorkerCount int
	// DebugMode reports whether debug output was enabled.
	DebugMode bool
}

// NewSession returns a session with a fresh identifier and the start time
// set to now.
func NewSession(productName, productVersion string) *Session {
	return &Session{
		Identifier:     uuid.NewString(),
		ProductName:    productName,
		ProductVersion: productVersion,
		StartTime:      time.Now().UTC(),
	}
}

// CreateSessionStart derives the session start container. Pure derivation:
// the session itself is not modified.
func (s *Session) CreateSessionStart() *SessionStart {
	return &SessionStart{
		SessionIdentifier: s.Identifier,
		ProductName:       s.ProductName,
		ProductVersion:    s.ProductVersion,
		StartTime:         s.StartTime,
	}
}

// CreateSessionCompletion derives the session completion container.
func (s *Session) CreateSessionCompletion() *SessionCompletion {
	return &SessionCompletion{
		SessionIdentifier: s.Identifier,
		Aborted:           s.Aborted,
		CompletionTime:    s.CompletionTime,
	}
}

// CreateSessionConfiguration derives the session configuration container,
// capturing the processing options the session ran with.
func (s *Session) CreateSessionConfiguration() *SessionConfiguration {
	return &SessionConfiguration{
		SessionIdentifier: s.Identifier,
		EnabledParsers:    append([]string(nil), s.EnabledParsers...),
		WorkerCount:       s.WorkerCount,
		DebugMode:         s.DebugMode,
	}
}

// SessionStart records the start of a session. At most one exists per
// session instance.
type SessionStart struct {
	identifier

	SessionIdentifier string    `cbor:"session_identifier" json:"session_identifier"`
	ProductName       string    `cbor:"product_name" json:"product_name"`
	ProductVersion    string    `cbor:"product_version" json:"product_version"`
	StartTime         time.Time `cbor:"start_time" json:"start_time"`
}

// ContainerKind implements Container.
func (s *SessionStart) ContainerKind() Kind { return KindSessionStart }

// SessionCompletion records the end of a session, carrying its final status.
type SessionCompletion struct {
	identifier

	SessionIdentifier string    `cbor:"session_identifier" json:"session_identifier"`
	Aborted           bool      `cbor:"aborted" json:"aborted"`
	CompletionTime    time.Time `cbor:"completion_time" json:"completion_time"`
}

// ContainerKind implements Container.
func (s *SessionCompletion) ContainerKind() Kind { return KindSessionCompletion }

// SessionConfiguration captures the processing options of a session.
// Session-scoped only; tasks have no configuration record.
type SessionConfiguration struct {
	identifier

	SessionIdentifier string   `cbor:"session_identifier" json:"session_identifier"`
	EnabledParsers    []string `cbor:"enabled_parsers" json:"enabled_parsers"`
	WorkerCount       int      `cbor:"worker_count" json:"worker_count"`
	DebugMode         bool     `cbor:"debug_mode" json:"debug_mode"`
}

// ContainerKind implements Container.
func (s *SessionConfiguration) ContainerKind() Kind { return KindSessionConfiguration }
