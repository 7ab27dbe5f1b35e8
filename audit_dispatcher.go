package goGate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher decouples request handling from audit delivery. Events
// land on a bounded queue and a single background goroutine forwards them
// to the sink, so a slow sink never stalls a login or predict call unless
// blocking delivery was explicitly configured.
type auditDispatcher struct {
	sink       AuditSink
	queue      chan AuditEvent
	quit       chan struct{}
	dropIfFull bool
	dropped    atomic.Uint64
	stopped    atomic.Bool
	stop       sync.Once
	wg         sync.WaitGroup
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	depth := cfg.BufferSize
	if depth <= 0 {
		depth = 1
	}

	d := &auditDispatcher{
		sink:       sink,
		queue:      make(chan AuditEvent, depth),
		quit:       make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}
	d.wg.Add(1)
	go d.forward()
	return d
}

// forward delivers queued events until Close, then drains whatever is
// still buffered so an accepted event is never silently lost.
func (d *auditDispatcher) forward() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.quit:
			d.drain()
			return
		}
	}
}

func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues event for asynchronous delivery. A zero Timestamp is filled
// in here. With DropIfFull a full queue counts the event as dropped rather
// than blocking; otherwise Emit waits until the queue has room, ctx ends,
// or the dispatcher closes. Emits after Close are discarded.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.stopped.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.quit:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Close stops intake, waits for the forwarder to drain the queue, and is
// safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stop.Do(func() {
		d.stopped.Store(true)
		close(d.quit)
		d.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
