package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/parsers"
	"github.com/sifterlab/sifter/pkg/storage"
	"github.com/sifterlab/sifter/pkg/storage/fake"
)

// cancelledParser aborts every parse the way a parser observing context
// cancellation does.
type cancelledParser struct{}

func (cancelledParser) Name() string { return "cancelled" }

func (cancelledParser) Supports(string) bool { return true }

func (cancelledParser) Parse(context.Context, *parsers.Mediator, string) error {
	return context.Canceled
}

func TestProcessTask_FailureHandsBackNoOpenStore(t *testing.T) {
	t.Parallel()

	eng := New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, Options{})
	session := containers.NewSession("sifter", "test")
	source := &containers.EventSource{Path: "/evidence/app.log", SourceType: containers.SourceTypeFile}

	res := eng.processTask(context.Background(), session, source, []parsers.Parser{cancelledParser{}})

	require.ErrorIs(t, res.err, context.Canceled)
	assert.Nil(t, res.writer, "failed tasks must not reach the merge loop with an open writer")
	assert.Nil(t, res.store)
}

func TestFailTask_ClosesTaskStore(t *testing.T) {
	t.Parallel()

	store := fake.NewStore()
	writer := storage.NewWriter(store, storage.TypeTask)
	require.NoError(t, writer.Open())

	parseErr := errors.New("parse aborted")

	res := failTask(writer, parseErr)
	require.ErrorIs(t, res.err, parseErr)

	_, err := store.AddContainer(containers.NewEvent())
	assert.ErrorIs(t, err, storage.ErrNotOpen, "the task store must be closed on failure")
}
