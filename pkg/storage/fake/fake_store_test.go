package fake_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/storage"
	"github.com/sifterlab/sifter/pkg/storage/fake"
)

func newEvent(ts time.Time) *containers.Event {
	event := containers.NewEvent()
	event.Timestamp = ts
	event.TimestampDesc = containers.TimeDescriptionWritten

	return event
}

func TestStore_OpenCloseLifecycle(t *testing.T) {
	t.Parallel()

	store := fake.NewStore()

	require.NoError(t, store.Open())
	require.ErrorIs(t, store.Open(), storage.ErrAlreadyOpen)

	require.NoError(t, store.Close())
	require.ErrorIs(t, store.Close(), storage.ErrNotOpen)
}

func TestStore_OperationsRequireOpen(t *testing.T) {
	t.Parallel()

	store := fake.NewStore()

	_, err := store.AddContainer(containers.NewEvent())
	require.ErrorIs(t, err, storage.ErrNotOpen)

	_, err = store.ContainerByIdentifier(containers.KindEvent, 0)
	require.ErrorIs(t, err, storage.ErrNotOpen)

	_, err = store.CountContainers(containers.KindEvent)
	require.ErrorIs(t, err, storage.ErrNotOpen)

	_, err = store.Containers(containers.KindEvent)
	require.ErrorIs(t, err, storage.ErrNotOpen)
}

func TestStore_IdentifiersPerKindFromZero(t *testing.T) {
	t.Parallel()

	store := fake.NewStore()
	require.NoError(t, store.Open())

	now := time.Now().UTC()

	for want := int64(0); want < 3; want++ {
		id, err := store.AddContainer(newEvent(now))
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	// A different kind gets its own counter, still starting at 0.
	id, err := store.AddContainer(containers.NewEventData("fs:stat"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)

	count, err := store.CountContainers(containers.KindEvent)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestStore_LookupByIdentifierAndIndex(t *testing.T) {
	t.Parallel()

	store := fake.NewStore()
	require.NoError(t, store.Open())

	first := &containers.EventSource{Path: "/a", SourceType: containers.SourceTypeFile}
	second := &containers.EventSource{Path: "/b", SourceType: containers.SourceTypeFile}

	_, err := store.AddContainer(first)
	require.NoError(t, err)
	_, err = store.AddContainer(second)
	require.NoError(t, err)

	byID, err := store.ContainerByIdentifier(containers.KindEventSource, 1)
	require.NoError(t, err)
	assert.Same(t, second, byID)

	byIndex, err := store.ContainerByIndex(containers.KindEventSource, 0)
	require.NoError(t, err)
	assert.Same(t, first, byIndex)

	_, err = store.ContainerByIdentifier(containers.KindEventSource, 2)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.ContainerByIndex(containers.KindEventSource, -1)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ContainersPreservesAppendOrder(t *testing.T) {
	t.Parallel()

	store := fake.NewStore()
	require.NoError(t, store.Open())

	paths := []string{"/c", "/a", "/b"}
	for _, p := range paths {
		_, err := store.AddContainer(&containers.EventSource{Path: p})
		require.NoError(t, err)
	}

	seq, err := store.Containers(containers.KindEventSource)
	require.NoError(t, err)

	var got []string
	for c := range seq {
		got = append(got, c.(*containers.EventSource).Path)
	}

	assert.Equal(t, paths, got)

	// The sequence is restartable: ranging again starts from the beginning.
	var restarted []string
	for c := range seq {
		restarted = append(restarted, c.(*containers.EventSource).Path)

		break
	}

	assert.Equal(t, []string{"/c"}, restarted)
}

func TestStore_KindsReportsHeldKindsInOrder(t *testing.T) {
	t.Parallel()

	store := fake.NewStore()
	require.NoError(t, store.Open())

	_, err := store.AddContainer(newEvent(time.Now().UTC()))
	require.NoError(t, err)

	_, err = store.AddContainer(containers.NewEventData("fs:stat"))
	require.NoError(t, err)

	kinds, err := store.Kinds()
	require.NoError(t, err)
	assert.Equal(t, []containers.Kind{containers.KindEventData, containers.KindEvent}, kinds)
}

func TestStore_CloseDiscardsContents(t *testing.T) {
	t.Parallel()

	store := fake.NewStore()
	require.NoError(t, store.Open())

	_, err := store.AddContainer(containers.NewEvent())
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Open())

	count, err := store.CountContainers(containers.KindEvent)
	require.NoError(t, err)
	assert.Zero(t, count)
}
