// Package engine coordinates an extraction run: it discovers event sources
// under an evidence root, fans them out to task workers that each parse one
// source into a private in-memory store, and merges completed task stores
// into the durable session store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sifterlab/sifter/pkg/analysis"
	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/observability"
	"github.com/sifterlab/sifter/pkg/parsers"
	"github.com/sifterlab/sifter/pkg/storage"
	"github.com/sifterlab/sifter/pkg/storage/fake"
)

// ErrNotMergeable is returned when the session store cannot absorb task
// stores.
var ErrNotMergeable = errors.New("engine: session store does not support merging")

// Defaults for Options fields left zero.
const (
	DefaultWorkers      = 4
	DefaultPollInterval = 10 * time.Millisecond
)

// Options tunes an engine.
type Options struct {
	// Workers is the number of parallel task workers.
	Workers int
	// PollInterval is how long the dispatcher sleeps between cursor polls
	// while discovery is still producing sources.
	PollInterval time.Duration
}

// Engine runs extraction sessions. Construct with New; the zero value is
// not usable.
type Engine struct {
	logger       *slog.Logger
	metrics      *observability.PipelineMetrics
	workers      int
	pollInterval time.Duration
}

// New returns an engine. metrics may be nil when no exporter is configured.
func New(logger *slog.Logger, metrics *observability.PipelineMetrics, opts Options) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	return &Engine{
		logger:       logger,
		metrics:      metrics,
		workers:      workers,
		pollInterval: pollInterval,
	}
}

// Result summarizes a completed extraction run.
type Result struct {
	Sources  int
	Events   int
	Warnings int
	Tasks    int
}

// taskResult carries one worker's output to the merge coordinator. The task
// store stays open so the coordinator can read it during the merge.
type taskResult struct {
	writer   *storage.Writer
	store    *fake.Store
	task     *containers.Task
	events   int
	warnings int
	err      error
}

// ProcessSource runs one extraction session over the evidence at root into
// sessionStore, which must support merging (the durable backend does). The
// analysis plugins run over the merged session store once extraction is
// complete.
func (e *Engine) ProcessSource(
	ctx context.Context,
	session *containers.Session,
	root string,
	sessionStore storage.Store,
	parserList []parsers.Parser,
	plugins []analysis.Plugin,
) (*Result, error) {
	merger, ok := sessionStore.(storage.Merger)
	if !ok {
		return nil, ErrNotMergeable
	}

	writer := storage.NewWriter(sessionStore, storage.TypeSession)

	err := writer.Open()
	if err != nil {
		return nil, fmt.Errorf("open session writer: %w", err)
	}

	result, runErr := e.run(ctx, session, root, writer, merger, parserList, plugins)
	if runErr != nil {
		session.Aborted = true
	}

	session.CompletionTime = time.Now().UTC()

	completionErr := writer.WriteSessionCompletion(session)

	closeErr := writer.Close()

	err = errors.Join(runErr, completionErr, closeErr)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// run is the session body between Open and the completion record.
func (e *Engine) run(
	ctx context.Context,
	session *containers.Session,
	root string,
	writer *storage.Writer,
	merger storage.Merger,
	parserList []parsers.Parser,
	plugins []analysis.Plugin,
) (*Result, error) {
	err := writer.WriteSessionStart(session)
	if err != nil {
		return nil, err
	}

	err = writer.WriteSessionConfiguration(session)
	if err != nil {
		return nil, err
	}

	var discoveryDone atomic.Bool

	discoveryErrCh := make(chan error, 1)

	go func() {
		discoveryErrCh <- e.discover(ctx, root, writer)

		discoveryDone.Store(true)
	}()

	taskCh := make(chan *containers.EventSource)
	dispatchErrCh := make(chan error, 1)

	go func() {
		dispatchErrCh <- e.dispatch(ctx, writer, &discoveryDone, taskCh)

		close(taskCh)
	}()

	resultCh := e.startWorkers(ctx, session, taskCh, parserList)

	result := &Result{}
	mergeErrs := e.mergeResults(ctx, merger, resultCh, result)

	err = errors.Join(<-discoveryErrCh, <-dispatchErrCh, mergeErrs)
	if err != nil {
		return nil, err
	}

	err = analysis.RunPlugins(writer.Store(), writer, plugins, e.logger)
	if err != nil {
		return nil, fmt.Errorf("analysis stage: %w", err)
	}

	e.summarize(ctx, writer.Store(), result)

	return result, nil
}

// discover walks the evidence root and seeds event sources. Unreadable
// entries become extraction warnings, not failures.
func (e *Engine) discover(ctx context.Context, root string, writer *storage.Writer) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat evidence root: %w", err)
	}

	if info.Mode().IsRegular() {
		return e.produceSource(ctx, writer, root)
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			warning := &containers.ExtractionWarning{
				Message: fmt.Sprintf("unable to access entry: %v", err),
				Path:    path,
			}

			_, warnErr := writer.AddExtractionWarning(warning)

			return warnErr
		}

		if !d.Type().IsRegular() {
			return nil
		}

		return e.produceSource(ctx, writer, path)
	})
	if walkErr != nil {
		return fmt.Errorf("walk evidence root: %w", walkErr)
	}

	return nil
}

func (e *Engine) produceSource(ctx context.Context, writer *storage.Writer, path string) error {
	source := &containers.EventSource{
		Path:       path,
		SourceType: containers.SourceTypeFile,
	}

	_, err := writer.AddEventSource(source)
	if err != nil {
		return fmt.Errorf("add event source: %w", err)
	}

	if e.metrics != nil {
		e.metrics.RecordSourceDiscovered(ctx)
	}

	e.logger.Debug("discovered source", "path", path)

	return nil
}

// dispatch polls the writer's newly-written cursor and hands sources to the
// workers. It terminates once discovery has finished and the cursor is
// exhausted.
func (e *Engine) dispatch(
	ctx context.Context,
	writer *storage.Writer,
	discoveryDone *atomic.Bool,
	taskCh chan<- *containers.EventSource,
) error {
	read := writer.FirstWrittenEventSource

	for {
		source, err := read()
		if err != nil {
			return fmt.Errorf("read event source cursor: %w", err)
		}

		read = writer.NextWrittenEventSource

		if source == nil {
			if discoveryDone.Load() {
				// No appends can follow once discovery is done, so a second
				// miss means the queue is exhausted.
				source, err = writer.NextWrittenEventSource()
				if err != nil {
					return fmt.Errorf("read event source cursor: %w", err)
				}

				if source == nil {
					return nil
				}
			} else {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(e.pollInterval):
				}

				continue
			}
		}

		select {
		case taskCh <- source:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// startWorkers launches the task workers and returns the channel their
// results arrive on; the channel closes when all workers finish.
func (e *Engine) startWorkers(
	ctx context.Context,
	session *containers.Session,
	taskCh <-chan *containers.EventSource,
	parserList []parsers.Parser,
) <-chan taskResult {
	resultCh := make(chan taskResult)

	var wg sync.WaitGroup

	for range e.workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for source := range taskCh {
				resultCh <- e.processTask(ctx, session, source, parserList)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	return resultCh
}

// processTask parses one source into a fresh task-scoped store.
func (e *Engine) processTask(
	ctx context.Context,
	session *containers.Session,
	source *containers.EventSource,
	parserList []parsers.Parser,
) taskResult {
	store := fake.NewStore()
	writer := storage.NewWriter(store, storage.TypeTask)

	err := writer.Open()
	if err != nil {
		return taskResult{err: fmt.Errorf("open task writer: %w", err)}
	}

	task := containers.NewTask(session.Identifier)
	task.SourcePath = source.Path

	err = writer.WriteTaskStart(task)
	if err != nil {
		return failTask(writer, err)
	}

	mediator := parsers.NewMediator(writer)
	mediator.SetCurrentPath(source.Path)

	for _, parser := range parserList {
		if !parser.Supports(source.Path) {
			continue
		}

		parseErr := e.runParser(ctx, parser, mediator, source.Path)
		if parseErr != nil {
			return failTask(writer, parseErr)
		}
	}

	task.CompletionTime = time.Now().UTC()

	err = writer.WriteTaskCompletion(task)
	if err != nil {
		return failTask(writer, err)
	}

	return taskResult{
		writer:   writer,
		store:    store,
		task:     task,
		events:   mediator.EventsProduced(),
		warnings: mediator.WarningsProduced(),
	}
}

// failTask closes the open task writer before surfacing the error, so a
// failed task never hands an open store back to the merge loop.
func failTask(writer *storage.Writer, err error) taskResult {
	closeErr := writer.Close()

	return taskResult{err: errors.Join(err, closeErr)}
}

// runParser invokes one parser, recording its duration and downgrading its
// failure to an extraction warning: one undecodable file must not abort the
// session.
func (e *Engine) runParser(ctx context.Context, parser parsers.Parser, mediator *parsers.Mediator, path string) error {
	mediator.PushParser(parser.Name())
	defer mediator.PopParser()

	started := time.Now()

	err := parser.Parse(ctx, mediator, path)

	if e.metrics != nil {
		e.metrics.RecordParse(ctx, parser.Name(), time.Since(started))
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		e.logger.Warn("parser failed", "parser", parser.Name(), "path", path, "error", err)

		return mediator.ProduceExtractionWarning(fmt.Sprintf("parser failed: %v", err))
	}

	return nil
}

// mergeResults absorbs completed task stores into the session store, one at
// a time on this goroutine so the destination sees a single merger.
func (e *Engine) mergeResults(
	ctx context.Context,
	merger storage.Merger,
	resultCh <-chan taskResult,
	result *Result,
) error {
	var errs []error

	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, res.err)

			continue
		}

		mergeErr := merger.MergeFrom(res.store)
		if mergeErr != nil {
			errs = append(errs, fmt.Errorf("merge task %s: %w", res.task.Identifier, mergeErr))
		} else {
			result.Tasks++
			result.Events += res.events
			result.Warnings += res.warnings
		}

		closeErr := res.writer.Close()
		if closeErr != nil {
			errs = append(errs, fmt.Errorf("close task store: %w", closeErr))
		}

		if e.metrics != nil {
			status := "ok"
			if mergeErr != nil {
				status = "error"
			}

			e.metrics.RecordTask(ctx, status)
			e.metrics.RecordWarnings(ctx, "extraction", int64(res.warnings))
		}
	}

	return errors.Join(errs...)
}

// summarize records final per-kind container counts from the session store.
func (e *Engine) summarize(ctx context.Context, store storage.Store, result *Result) {
	kinds, err := store.Kinds()
	if err != nil {
		return
	}

	for _, kind := range kinds {
		count, err := store.CountContainers(kind)
		if err != nil {
			continue
		}

		if e.metrics != nil {
			e.metrics.RecordContainers(ctx, string(kind), int64(count))
		}

		switch kind {
		case containers.KindEventSource:
			result.Sources = count
		case containers.KindEvent:
			result.Events = count
		case containers.KindExtractionWarning:
			result.Warnings = count
		default:
		}
	}
}
