package engine

import (
	"log/slog"
	"sync"

	"github.com/roach88/hotclick/internal/model"
)

// StatusSink receives status transitions for display. The engine only
// emits to it and never reads from it.
//
// Emit is called from the master loop, from macro goroutines and from the
// listener goroutine. Implementations that block or are not safe for
// concurrent use must be wrapped in an AsyncSink.
type StatusSink interface {
	Emit(s model.Status)
}

// SinkFunc adapts a function to StatusSink.
type SinkFunc func(model.Status)

// Emit calls f(s).
func (f SinkFunc) Emit(s model.Status) {
	f(s)
}

// NopSink discards every status.
type NopSink struct{}

// Emit does nothing.
func (NopSink) Emit(model.Status) {}

// MultiSink fans a status out to several sinks in order.
type MultiSink []StatusSink

// Emit forwards s to every sink.
func (m MultiSink) Emit(s model.Status) {
	for _, sink := range m {
		sink.Emit(s)
	}
}

// LogSink logs every status at debug level.
type LogSink struct {
	Logger *slog.Logger
}

// Emit logs s.
func (l LogSink) Emit(s model.Status) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("status", "label", s.Label, "color", string(s.Color), "event", "status_changed")
}

// AsyncSink decouples producers from a slow or blocking sink. Emit enqueues
// and returns immediately; one goroutine delivers to the wrapped sink in
// FIFO order.
type AsyncSink struct {
	next  StatusSink
	queue *statusQueue
	done  chan struct{}
	once  sync.Once
}

// NewAsyncSink starts the delivery goroutine. Call Close to stop it.
func NewAsyncSink(next StatusSink) *AsyncSink {
	a := &AsyncSink{
		next:  next,
		queue: newStatusQueue(),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

// Emit enqueues s. After Close, statuses are dropped.
func (a *AsyncSink) Emit(s model.Status) {
	a.queue.Enqueue(s)
}

// Close stops accepting statuses, delivers what is already queued and waits
// for the delivery goroutine to exit.
func (a *AsyncSink) Close() {
	a.once.Do(a.queue.Close)
	<-a.done
}

func (a *AsyncSink) run() {
	defer close(a.done)
	for {
		if s, ok := a.queue.TryDequeue(); ok {
			a.next.Emit(s)
			continue
		}
		if _, open := <-a.queue.Wait(); !open && a.queue.Len() == 0 {
			return
		}
	}
}
