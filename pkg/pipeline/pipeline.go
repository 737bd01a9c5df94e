package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

// Pipeline is one named, independently-lifecycled ETL data path: N
// sources, an ordered processor chain, K sinks, connected by bounded
// queues per SPEC_FULL.md §4.3.
type Pipeline struct {
	cfg Config

	mu         sync.Mutex // guards plugin instance slices across restarts
	sources    []plugin.Source
	processors []plugin.Processor
	sinks      []plugin.Sink
	sinkQueues []*sinkQueue

	state    *stateMachine
	counters *counters

	startTime     time.Time
	failureReason string
	failureMu     sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *slog.Logger
}

// New constructs plugin instances for every declared source/processor/
// sink by looking up their type-tag in the process-wide registry. An
// unknown type fails here — the spec's load-time failure — without
// touching any external resource (Open is deferred to Start).
func New(cfg Config) (*Pipeline, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:    cfg,
		state:  newStateMachine(),
		logger: slog.Default().With("pipeline", cfg.Name),
	}
	if err := p.constructPlugins(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) constructPlugins() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sources := make([]plugin.Source, 0, len(p.cfg.Sources))
	for _, rec := range p.cfg.Sources {
		src, err := plugin.NewSource(rec.Type)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	procs := make([]plugin.Processor, 0, len(p.cfg.Processors))
	for _, rec := range p.cfg.Processors {
		proc, err := plugin.NewProcessor(rec.Type)
		if err != nil {
			return err
		}
		procs = append(procs, proc)
	}

	snks := make([]plugin.Sink, 0, len(p.cfg.Sinks))
	for _, rec := range p.cfg.Sinks {
		snk, err := plugin.NewSink(rec.Type)
		if err != nil {
			return err
		}
		snks = append(snks, snk)
	}

	p.sources, p.processors, p.sinks = sources, procs, snks
	p.counters = newCounters()
	return nil
}

// Name returns the pipeline's configured name.
func (p *Pipeline) Name() string { return p.cfg.Name }

// State returns the current lifecycle state.
func (p *Pipeline) State() State { return p.state.get() }

func (p *Pipeline) fail(from State, reason string) {
	p.failureMu.Lock()
	p.failureReason = reason
	p.failureMu.Unlock()
	if !p.state.transition(from, StateFailed) {
		p.state.forceFail()
	}
	p.logger.Error("pipeline failed", "reason", reason)
	if p.cancel != nil {
		p.cancel()
	}
}

// Start runs the pipeline's open/start sequence: open sinks → open
// processors → open sources → start sink tasks → start batcher → start
// processor driver → start sources. Idempotent: calling Start while
// already starting/running is a no-op.
func (p *Pipeline) Start(parent context.Context) error {
	cur := p.state.get()
	if cur == StateRunning || cur == StateStarting {
		return nil
	}
	if cur != StateCreated && cur != StateStopped {
		return fmt.Errorf("pipeline %s: cannot start from state %s", p.cfg.Name, cur)
	}
	if cur == StateStopped {
		// Fresh plugin instances and counters: no event survives a
		// restart, and counters reset to zero.
		if err := p.constructPlugins(); err != nil {
			return err
		}
	}
	if !p.state.transition(cur, StateStarting) {
		return nil // lost the race to a concurrent Start; treat as no-op
	}

	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel

	if err := p.openAll(ctx); err != nil {
		p.fail(StateStarting, err.Error())
		return err
	}

	p.startTasks(ctx)

	p.startTime = time.Now()
	p.state.transition(StateStarting, StateRunning)
	return nil
}

func (p *Pipeline) openAll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, snk := range p.sinks {
		if err := snk.Open(ctx, p.cfg.Sinks[i].Config); err != nil {
			return &plugin.OpenError{Plugin: p.cfg.Sinks[i].Name, Err: err}
		}
	}
	for i, proc := range p.processors {
		if err := proc.Open(p.cfg.Processors[i].Config); err != nil {
			return &plugin.OpenError{Plugin: p.cfg.Processors[i].Name, Err: err}
		}
	}
	for i, src := range p.sources {
		if err := src.Open(ctx, p.cfg.Sources[i].Config); err != nil {
			return &plugin.OpenError{Plugin: p.cfg.Sources[i].Name, Err: err}
		}
	}
	return nil
}

func (p *Pipeline) startTasks(ctx context.Context) {
	ingestCh := make(chan *logevent.LogEvent, p.cfg.QIngest)
	outCh := make(chan *logevent.LogEvent, p.cfg.QOut)

	p.sinkQueues = make([]*sinkQueue, len(p.sinks))
	for i, snk := range p.sinks {
		q := newSinkQueue(p.cfg.QSink, p.cfg.OverflowPolicy, p.counters)
		p.sinkQueues[i] = q
		p.wg.Add(1)
		go p.runSinkTask(ctx, snk, p.cfg.Sinks[i].Name, q)
	}

	p.wg.Add(1)
	go p.runBatcherTask(ctx, outCh)

	for w := 0; w < p.cfg.Workers; w++ {
		p.wg.Add(1)
		go p.runProcessorDriver(ctx, ingestCh, outCh)
	}

	for i, src := range p.sources {
		p.wg.Add(1)
		go p.runSourceTask(ctx, src, p.cfg.Sources[i].Name, ingestCh)
	}
}

func (p *Pipeline) runSourceTask(ctx context.Context, src plugin.Source, name string, ingestCh chan<- *logevent.LogEvent) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.fail(StateRunning, fmt.Sprintf("source %s panicked: %v", name, r))
		}
	}()

	emit := func(ctx context.Context, evt *logevent.LogEvent) error {
		evt.Source = name
		select {
		case ingestCh <- evt:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := src.Start(ctx, emit); err != nil && ctx.Err() == nil {
		p.logger.Error("source stopped with error", "source", name, "error", err)
	}
}

func (p *Pipeline) runProcessorDriver(ctx context.Context, ingestCh <-chan *logevent.LogEvent, outCh chan<- *logevent.LogEvent) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.fail(StateRunning, fmt.Sprintf("processor driver panicked: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ingestCh:
			if !ok {
				return
			}
			for _, result := range p.runChain(ctx, evt) {
				select {
				case outCh <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// runChain runs the processor chain sequentially over one event,
// returning the events that survive it (possibly none, possibly many from
// a split). Every event that enters the chain and does not survive it —
// filtered out (a processor returns no results) or dropped on a
// non-ignored processor error — is counted in eventsDropped exactly
// once, per §8 invariant #1 and #6.
func (p *Pipeline) runChain(ctx context.Context, evt *logevent.LogEvent) []*logevent.LogEvent {
	current := []*logevent.LogEvent{evt}
	for i, proc := range p.processors {
		var next []*logevent.LogEvent
		for _, e := range current {
			results, err := proc.Process(ctx, e)
			if err != nil {
				p.counters.processingErrors.Add(1)
				p.logger.Warn("processor error", "processor", p.cfg.Processors[i].Name, "error", err)
				if p.cfg.Processors[i].Config.GetBool("ignore_errors", false) {
					next = append(next, e)
				} else {
					p.counters.eventsDropped.Add(1)
				}
				continue
			}
			if len(results) == 0 {
				p.counters.eventsDropped.Add(1)
				continue
			}
			next = append(next, results...)
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	return current
}

func (p *Pipeline) runBatcherTask(ctx context.Context, outCh <-chan *logevent.LogEvent) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.fail(StateRunning, fmt.Sprintf("batcher panicked: %v", r))
		}
	}()

	runBatcher(ctx, p.cfg.Name, outCh, p.cfg.BatchSize, p.cfg.BatchTimeout, func(batch *logevent.Batch) {
		p.counters.eventsProcessed.Add(int64(batch.Len()))
		for _, q := range p.sinkQueues {
			if !q.push(ctx, batch) {
				return
			}
		}
	})
}

// Stop runs the pipeline's stop sequence (reverse of start) with a
// stop_grace deadline on the overall wind-down; idempotent.
func (p *Pipeline) Stop(ctx context.Context) error {
	cur := p.state.get()
	if cur == StateStopped || cur == StateCreated {
		return nil
	}
	if cur == StateFailed {
		p.closeAll()
		return nil
	}
	if !p.state.transition(StateRunning, StateStopping) {
		if p.state.get() == StateStopping {
			return nil // already stopping
		}
		return fmt.Errorf("pipeline %s: cannot stop from state %s", p.cfg.Name, p.state.get())
	}

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.cfg.StopGrace):
		p.logger.Error("stop_grace exceeded; forcing release", "pipeline", p.cfg.Name)
		p.state.transition(StateStopping, StateFailed)
		p.closeAll()
		return fmt.Errorf("pipeline %s: stop_grace exceeded", p.cfg.Name)
	}

	p.closeAll()
	p.state.transition(StateStopping, StateStopped)
	return nil
}

func (p *Pipeline) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, src := range p.sources {
		if err := src.Stop(context.Background()); err != nil {
			p.logger.Warn("source stop error", "error", err)
		}
	}
	for _, proc := range p.processors {
		if err := proc.Close(); err != nil {
			p.logger.Warn("processor close error", "error", err)
		}
	}
	for _, snk := range p.sinks {
		if err := snk.Flush(context.Background()); err != nil {
			p.logger.Warn("sink flush error", "error", err)
		}
		if err := snk.Close(); err != nil {
			p.logger.Warn("sink close error", "error", err)
		}
	}
	for _, q := range p.sinkQueues {
		q.close()
	}
}

// Restart stops (if running) then starts the pipeline fresh.
func (p *Pipeline) Restart(ctx context.Context) error {
	if err := p.Stop(ctx); err != nil {
		return err
	}
	return p.Start(ctx)
}

// Metrics returns a read-only snapshot of the pipeline's counters and
// lifecycle state.
func (p *Pipeline) Metrics() Metrics {
	p.failureMu.Lock()
	reason := p.failureReason
	p.failureMu.Unlock()

	state := p.state.get()
	return Metrics{
		Name:             p.cfg.Name,
		State:            state.String(),
		Running:          state == StateRunning,
		EventsProcessed:  p.counters.eventsProcessed.Load(),
		EventsDropped:    p.counters.eventsDropped.Load(),
		ProcessingErrors: p.counters.processingErrors.Load(),
		UptimeSeconds:    durationSeconds(p.startTime),
		Sources:          len(p.cfg.Sources),
		Processors:       len(p.cfg.Processors),
		Sinks:            len(p.cfg.Sinks),
		SinkWriteErrors:  p.counters.snapshotSinkErrors(),
		FailureReason:    reason,
	}
}
