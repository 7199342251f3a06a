package containers_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifterlab/sifter/pkg/containers"
)

func TestNewSession_FreshIdentifiers(t *testing.T) {
	t.Parallel()

	first := containers.NewSession("sifter", "1.0.0")
	second := containers.NewSession("sifter", "1.0.0")

	require.NotEmpty(t, first.Identifier)
	assert.NotEqual(t, first.Identifier, second.Identifier)
	assert.Equal(t, "sifter", first.ProductName)
	assert.False(t, first.StartTime.IsZero())
}

func TestSession_CreateSessionStart(t *testing.T) {
	t.Parallel()

	session := containers.NewSession("sifter", "1.0.0")
	start := session.CreateSessionStart()

	assert.Equal(t, session.Identifier, start.SessionIdentifier)
	assert.Equal(t, session.ProductName, start.ProductName)
	assert.Equal(t, session.ProductVersion, start.ProductVersion)
	assert.True(t, session.StartTime.Equal(start.StartTime))
}

func TestSession_CreateSessionCompletion(t *testing.T) {
	t.Parallel()

	session := containers.NewSession("sifter", "1.0.0")
	session.Aborted = true
	session.CompletionTime = time.Now().UTC()

	completion := session.CreateSessionCompletion()

	assert.Equal(t, session.Identifier, completion.SessionIdentifier)
	assert.True(t, completion.Aborted)
	assert.True(t, session.CompletionTime.Equal(completion.CompletionTime))
}

func TestSession_CreateSessionConfigurationCopiesParsers(t *testing.T) {
	t.Parallel()

	session := containers.NewSession("sifter", "1.0.0")
	session.EnabledParsers = []string{"filestat", "syslog"}
	session.WorkerCount = 8

	cfg := session.CreateSessionConfiguration()

	require.Equal(t, []string{"filestat", "syslog"}, cfg.EnabledParsers)
	assert.Equal(t, 8, cfg.WorkerCount)

	// Mutating the session afterwards must not reach the derived record.
	session.EnabledParsers[0] = "mutated"
	assert.Equal(t, "filestat", cfg.EnabledParsers[0])
}

func TestTask_Derivations(t *testing.T) {
	t.Parallel()

	task := containers.NewTask("session-1")
	task.SourcePath = "/evidence/var/log/syslog"

	start := task.CreateTaskStart()
	require.Equal(t, task.Identifier, start.TaskIdentifier)
	assert.Equal(t, "session-1", start.SessionIdentifier)
	assert.True(t, task.StartTime.Equal(start.StartTime))

	task.Aborted = true
	task.CompletionTime = time.Now().UTC()

	completion := task.CreateTaskCompletion()
	assert.Equal(t, task.Identifier, completion.TaskIdentifier)
	assert.True(t, completion.Aborted)
	assert.True(t, task.CompletionTime.Equal(completion.CompletionTime))
}
