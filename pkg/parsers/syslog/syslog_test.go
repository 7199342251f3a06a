package syslog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/parsers"
	"github.com/sifterlab/sifter/pkg/parsers/syslog"
	"github.com/sifterlab/sifter/pkg/storage"
	"github.com/sifterlab/sifter/pkg/storage/fake"
)

func TestParser_Supports(t *testing.T) {
	t.Parallel()

	parser := syslog.New()

	assert.True(t, parser.Supports("/var/log/messages"))
	assert.True(t, parser.Supports("/var/log/syslog"))
	assert.True(t, parser.Supports("/var/log/syslog.1"))
	assert.True(t, parser.Supports("/srv/app/server.log"))

	assert.False(t, parser.Supports("/etc/passwd"))
	assert.False(t, parser.Supports("/home/user/notes.txt"))
}

func parseLog(t *testing.T, content string) (syslogParseResult, storage.Store) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "syslog")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	writer := storage.NewWriter(fake.NewStore(), storage.TypeTask)
	require.NoError(t, writer.Open())

	mediator := parsers.NewMediator(writer)
	mediator.PushParser(syslog.Name)
	mediator.SetCurrentPath(path)

	parser := syslog.New()
	parser.DefaultYear = 2024

	require.NoError(t, parser.Parse(context.Background(), mediator, path))

	return syslogParseResult{
		events:   mediator.EventsProduced(),
		warnings: mediator.WarningsProduced(),
	}, writer.Store()
}

type syslogParseResult struct {
	events   int
	warnings int
}

func TestParser_DecodesKnownFormats(t *testing.T) {
	t.Parallel()

	content := "Mar 15 09:30:00 myhost sshd[999]: Accepted password for root\n" +
		"2024-03-15T10:00:00.123456789Z host1 cron: job started\n"

	result, store := parseLog(t, content)

	require.Equal(t, 2, result.events)
	assert.Zero(t, result.warnings)

	stored, err := store.ContainerByIndex(containers.KindEvent, 0)
	require.NoError(t, err)

	first := stored.(*containers.Event)
	want := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	assert.True(t, want.Equal(first.Timestamp), "missing year filled from DefaultYear")
	assert.Equal(t, containers.TimeDescriptionRecorded, first.TimestampDesc)

	dataID, linked := first.EventDataIdentifier()
	require.True(t, linked)

	storedData, err := store.ContainerByIdentifier(containers.KindEventData, dataID)
	require.NoError(t, err)

	data := storedData.(*containers.EventData)
	assert.Equal(t, syslog.DataType, data.DataType)
	assert.Equal(t, "myhost", data.Values["hostname"])
	assert.Equal(t, "sshd", data.Values["reporter"])
	assert.Equal(t, "999", data.Values["pid"])
	assert.Equal(t, "Accepted password for root", data.Values["body"])
}

func TestParser_SubSecondTimestampPreserved(t *testing.T) {
	t.Parallel()

	_, store := parseLog(t, "2024-03-15T10:00:00.123456789Z host1 cron: job started\n")

	stored, err := store.ContainerByIndex(containers.KindEvent, 0)
	require.NoError(t, err)

	want := time.Date(2024, 3, 15, 10, 0, 0, 123456789, time.UTC)
	assert.True(t, want.Equal(stored.(*containers.Event).Timestamp))
}

func TestParser_UnmatchedLineBecomesWarning(t *testing.T) {
	t.Parallel()

	content := "this is not a syslog line\n" +
		"Mar 15 09:30:00 myhost sshd: ok\n"

	result, store := parseLog(t, content)

	assert.Equal(t, 1, result.events)
	require.Equal(t, 1, result.warnings)

	stored, err := store.ContainerByIndex(containers.KindExtractionWarning, 0)
	require.NoError(t, err)

	warning := stored.(*containers.ExtractionWarning)
	assert.Contains(t, warning.Message, "line 1")
	assert.Equal(t, syslog.Name, warning.ParserChain)
}

func TestParser_BlankLinesSkipped(t *testing.T) {
	t.Parallel()

	result, _ := parseLog(t, "\n\n   \nMar 15 09:30:00 myhost sshd: ok\n")

	assert.Equal(t, 1, result.events)
	assert.Zero(t, result.warnings)
}
