package parsers_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/parsers"
	"github.com/sifterlab/sifter/pkg/storage"
	"github.com/sifterlab/sifter/pkg/storage/fake"
)

func newMediator(t *testing.T) (*parsers.Mediator, storage.Store) {
	t.Helper()

	writer := storage.NewWriter(fake.NewStore(), storage.TypeTask)
	require.NoError(t, writer.Open())

	return parsers.NewMediator(writer), writer.Store()
}

func TestMediator_ParserChain(t *testing.T) {
	t.Parallel()

	mediator, _ := newMediator(t)

	assert.Empty(t, mediator.ParserChain())

	mediator.PushParser("archive")
	mediator.PushParser("syslog")
	assert.Equal(t, "archive/syslog", mediator.ParserChain())

	mediator.PopParser()
	assert.Equal(t, "archive", mediator.ParserChain())

	mediator.PopParser()
	mediator.PopParser() // popping an empty chain is harmless
	assert.Empty(t, mediator.ParserChain())
}

func TestMediator_ProduceEventWithEventDataLinksAndAppends(t *testing.T) {
	t.Parallel()

	mediator, store := newMediator(t)
	mediator.PushParser("syslog")

	data := containers.NewEventData("syslog:line")

	event := containers.NewEvent()
	event.Timestamp = time.Now().UTC()

	require.NoError(t, mediator.ProduceEventWithEventData(event, data))

	assert.Equal(t, "syslog", data.ParserChain, "chain attributed at produce time")

	dataID, linked := event.EventDataIdentifier()
	require.True(t, linked)

	stored, err := store.ContainerByIdentifier(containers.KindEventData, dataID)
	require.NoError(t, err)
	assert.Same(t, data, stored.(*containers.EventData))

	assert.Equal(t, 1, mediator.EventsProduced())
}

func TestMediator_SharedEventDataAppendedOnce(t *testing.T) {
	t.Parallel()

	mediator, store := newMediator(t)

	data := containers.NewEventData("fs:stat")

	for range 3 {
		event := containers.NewEvent()
		event.Timestamp = time.Now().UTC()

		require.NoError(t, mediator.ProduceEventWithEventData(event, data))
	}

	dataCount, err := store.CountContainers(containers.KindEventData)
	require.NoError(t, err)
	assert.Equal(t, 1, dataCount, "shared event data must be appended exactly once")

	eventCount, err := store.CountContainers(containers.KindEvent)
	require.NoError(t, err)
	assert.Equal(t, 3, eventCount)
}

func TestMediator_ProduceExtractionWarningAttribution(t *testing.T) {
	t.Parallel()

	mediator, store := newMediator(t)
	mediator.PushParser("syslog")
	mediator.SetCurrentPath("/var/log/messages")

	require.NoError(t, mediator.ProduceExtractionWarning("line 4: no syslog format matched"))

	stored, err := store.ContainerByIndex(containers.KindExtractionWarning, 0)
	require.NoError(t, err)

	warning := stored.(*containers.ExtractionWarning)
	assert.Equal(t, "syslog", warning.ParserChain)
	assert.Equal(t, "/var/log/messages", warning.Path)
	assert.Equal(t, 1, mediator.WarningsProduced())
}

func TestRegistry_Lookups(t *testing.T) {
	t.Parallel()

	_, err := parsers.ByName("no-such-parser")
	require.ErrorIs(t, err, parsers.ErrUnknownParser)

	_, err = parsers.ByNames([]string{"no-such-parser"})
	require.ErrorIs(t, err, parsers.ErrUnknownParser)
}
