package analysis_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifterlab/sifter/pkg/analysis"
	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/storage"
	"github.com/sifterlab/sifter/pkg/storage/fake"
)

// recordingPlugin captures the data types it was shown.
type recordingPlugin struct {
	seen []string
}

func (p *recordingPlugin) Name() string { return "recording" }

func (p *recordingPlugin) ExamineEvent(_ *containers.Event, data *containers.EventData) {
	p.seen = append(p.seen, data.DataType)
}

func (p *recordingPlugin) CompileReport() *containers.AnalysisReport {
	return &containers.AnalysisReport{
		PluginName: p.Name(),
		Text:       "recorded",
		CompiledAt: time.Now().UTC(),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openWriter(t *testing.T) *storage.Writer {
	t.Helper()

	writer := storage.NewWriter(fake.NewStore(), storage.TypeSession)
	require.NoError(t, writer.Open())

	return writer
}

func addLinkedEvent(t *testing.T, writer *storage.Writer, dataType string) {
	t.Helper()

	dataID, err := writer.AddEventData(containers.NewEventData(dataType))
	require.NoError(t, err)

	event := containers.NewEvent()
	event.Timestamp = time.Now().UTC()
	event.SetEventDataIdentifier(dataID)

	_, err = writer.AddEvent(event)
	require.NoError(t, err)
}

func TestRunPlugins_ExaminesEveryEventAndWritesReports(t *testing.T) {
	t.Parallel()

	writer := openWriter(t)
	addLinkedEvent(t, writer, "fs:stat")
	addLinkedEvent(t, writer, "syslog:line")

	plugin := &recordingPlugin{}
	require.NoError(t, analysis.RunPlugins(writer.Store(), writer, []analysis.Plugin{plugin}, discardLogger()))

	assert.Equal(t, []string{"fs:stat", "syslog:line"}, plugin.seen)

	count, err := writer.Store().CountContainers(containers.KindAnalysisReport)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunPlugins_DanglingReferenceWarnsAndSkips(t *testing.T) {
	t.Parallel()

	writer := openWriter(t)
	addLinkedEvent(t, writer, "fs:stat")

	dangling := containers.NewEvent()
	dangling.Timestamp = time.Now().UTC()
	dangling.SetEventDataIdentifier(42)

	_, err := writer.AddEvent(dangling)
	require.NoError(t, err)

	plugin := &recordingPlugin{}
	require.NoError(t, analysis.RunPlugins(writer.Store(), writer, []analysis.Plugin{plugin}, discardLogger()))

	assert.Equal(t, []string{"fs:stat"}, plugin.seen, "the dangling event must be skipped")

	warnings, err := writer.Store().CountContainers(containers.KindExtractionWarning)
	require.NoError(t, err)
	assert.Equal(t, 1, warnings)
}

func TestByName_ReturnsFreshInstances(t *testing.T) {
	t.Parallel()

	require.NoError(t, analysis.Register("fresh_instances", func() analysis.Plugin { return &recordingPlugin{} }))

	first, err := analysis.ByName("fresh_instances")
	require.NoError(t, err)

	second, err := analysis.ByName("fresh_instances")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestRegister_DuplicateFails(t *testing.T) {
	t.Parallel()

	require.NoError(t, analysis.Register("dup_check", func() analysis.Plugin { return &recordingPlugin{} }))

	err := analysis.Register("dup_check", func() analysis.Plugin { return &recordingPlugin{} })
	require.ErrorIs(t, err, analysis.ErrDuplicatePlugin)
}

func TestByName_Unknown(t *testing.T) {
	t.Parallel()

	_, err := analysis.ByName("no-such-plugin")
	require.ErrorIs(t, err, analysis.ErrUnknownPlugin)
}
