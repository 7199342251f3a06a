package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifterlab/sifter/cmd/sifter/commands"
	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/storage/file"
)

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

// seedStore writes a small session store to dir.
func seedStore(t *testing.T, dir string) {
	t.Helper()

	store := file.NewStore(dir)
	require.NoError(t, store.Open())

	session := containers.NewSession("sifter", "test")
	session.CompletionTime = session.StartTime.Add(time.Second)

	_, err := store.AddContainer(session.CreateSessionStart())
	require.NoError(t, err)
	_, err = store.AddContainer(session.CreateSessionCompletion())
	require.NoError(t, err)

	data := containers.NewEventData("syslog:line")
	data.ParserChain = "syslog"
	data.Values["body"] = "seeded"

	dataID, err := store.AddContainer(data)
	require.NoError(t, err)

	event := containers.NewEvent()
	event.Timestamp = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	event.TimestampDesc = containers.TimeDescriptionRecorded
	event.SetEventDataIdentifier(dataID)

	_, err = store.AddContainer(event)
	require.NoError(t, err)

	require.NoError(t, store.Close())
}

func TestExtractCommand_EndToEnd(t *testing.T) {
	source := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(source, []byte("2024-03-15T10:00:00Z host1 cron: job started\n"), 0o600))

	storeDir := filepath.Join(t.TempDir(), "store")

	out, err := runCommand(t, commands.NewExtractCommand(), source, "--storage", storeDir, "--workers", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "1 sources")
	assert.Contains(t, out, storeDir)

	store := file.NewStore(storeDir)
	require.NoError(t, store.Open())

	t.Cleanup(func() { _ = store.Close() })

	count, err := store.CountContainers(containers.KindEvent)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestInfoCommand_Summary(t *testing.T) {
	dir := t.TempDir()
	seedStore(t, dir)

	out, err := runCommand(t, commands.NewInfoCommand(), dir, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "sifter test session")
	assert.Contains(t, out, "event_data")
}

func TestInfoCommand_MissingStoreFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "no-such-store")

	_, err := runCommand(t, commands.NewInfoCommand(), dir)
	require.ErrorIs(t, err, file.ErrNoStore)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "inspecting a missing store must not create its directory")
}

func TestExportCommand_JSONToFile(t *testing.T) {
	dir := t.TempDir()
	seedStore(t, dir)

	output := filepath.Join(t.TempDir(), "report.json")

	_, err := runCommand(t, commands.NewExportCommand(), dir, "--format", "json", "--output", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Contains(t, report, "events")
}

func TestExportCommand_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	seedStore(t, dir)

	_, err := runCommand(t, commands.NewExportCommand(), dir, "--format", "xml")
	require.ErrorIs(t, err, commands.ErrUnknownFormat)
}

func TestMergeCommand_CombinesStores(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	seedStore(t, first)
	seedStore(t, second)

	dest := filepath.Join(t.TempDir(), "combined")

	out, err := runCommand(t, commands.NewMergeCommand(), dest, first, second)
	require.NoError(t, err)
	assert.Contains(t, out, "merged 2 stores")

	store := file.NewStore(dest)
	require.NoError(t, store.Open())

	t.Cleanup(func() { _ = store.Close() })

	count, err := store.CountContainers(containers.KindEvent)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	events, err := store.Containers(containers.KindEvent)
	require.NoError(t, err)

	for c := range events {
		dataID, linked := c.(*containers.Event).EventDataIdentifier()
		require.True(t, linked)

		_, err = store.ContainerByIdentifier(containers.KindEventData, dataID)
		require.NoError(t, err)
	}
}
