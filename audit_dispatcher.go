package authcore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher decouples engine operations from sink latency. Events
// queue into a bounded channel and a single goroutine delivers them in
// order. Overflow policy comes from AuditConfig: drop (counted, and
// surfaced as MetricAuditDropped) or block until the queue drains.
type auditDispatcher struct {
	sink       AuditSink
	metrics    *Metrics
	dropIfFull bool

	events chan AuditEvent
	stop   chan struct{}

	dropped atomic.Uint64
	closed  atomic.Bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, metrics *Metrics) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		metrics:    metrics,
		dropIfFull: cfg.DropIfFull,
		events:     make(chan AuditEvent, cfg.BufferSize),
		stop:       make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.events:
			d.deliver(event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// deliver hands one event to the sink. The sink gets a background context:
// the request that produced the event may be long gone by delivery time.
func (d *auditDispatcher) deliver(event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	d.sink.Emit(context.Background(), event)
}

// drain flushes whatever was queued before Close without accepting more.
func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.events:
			d.deliver(event)
		default:
			return
		}
	}
}

// Emit queues an event for asynchronous delivery. Under the drop policy a
// full queue loses the event and bumps the dropped counters; under the
// block policy the caller waits until there is room, the context ends, or
// the dispatcher closes. Safe to call on a nil dispatcher (audit disabled).
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
			if d.metrics != nil {
				d.metrics.Inc(MetricAuditDropped)
			}
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops intake, flushes queued events to the sink, and waits for the
// delivery goroutine to exit. Idempotent.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped reports how many events the drop policy has discarded.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
