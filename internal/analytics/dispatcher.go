package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/darkodi/snip/internal/logger"
	"github.com/darkodi/snip/internal/model"
)

// ErrClosed is returned by Close when called twice.
var ErrClosed = errors.New("dispatcher closed")

// dropLogInterval is the minimum gap between "buffer full" warnings
const dropLogInterval = 10 * time.Second

// Sink receives click events. Implementations may be slow or fail;
// the dispatcher isolates callers from both.
type Sink interface {
	Record(ctx context.Context, ev model.ClickEvent) error
}

// Config holds dispatcher settings
type Config struct {
	BufferSize int           // queued events before new ones are dropped
	Workers    int           // goroutines delivering to the sink
	Timeout    time.Duration // per-event delivery deadline
}

// Dispatcher hands click events to a Sink on background workers.
// Dispatch never blocks; delivery is at most once.
type Dispatcher struct {
	sink    Sink
	events  chan model.ClickEvent
	timeout time.Duration
	log     *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	dropped   atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64

	lastDropLog atomic.Int64 // unix nanos
	now         func() time.Time
}

// NewDispatcher starts cfg.Workers workers draining into sink
func NewDispatcher(sink Sink, cfg Config, log *logger.Logger) *Dispatcher {
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	d := &Dispatcher{
		sink:    sink,
		events:  make(chan model.ClickEvent, cfg.BufferSize),
		timeout: cfg.Timeout,
		log:     log,
		now:     time.Now,
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker(i)
	}
	log.Info("click dispatcher started", "workers", cfg.Workers, "buffer", cfg.BufferSize)
	return d
}

// Dispatch queues ev for delivery. It reports false when the event was
// dropped because the buffer is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(ev model.ClickEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return false
	}

	select {
	case d.events <- ev:
		return true
	default:
		d.noteDrop()
		return false
	}
}

// noteDrop counts a dropped event and warns at most once per dropLogInterval
func (d *Dispatcher) noteDrop() {
	total := d.dropped.Add(1)

	now := d.now().UnixNano()
	last := d.lastDropLog.Load()
	if last != 0 && now-last < int64(dropLogInterval) {
		return
	}
	if !d.lastDropLog.CompareAndSwap(last, now) {
		return
	}
	d.log.Warn("click events dropped, buffer full", "dropped_total", total)
}

// Close stops accepting events and waits for queued ones to be delivered,
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("click dispatcher stopped",
			"delivered", d.delivered.Load(),
			"failed", d.failed.Load(),
			"dropped", d.dropped.Load())
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain click events: %w", ctx.Err())
	}
}

// Stats returns delivered, failed and dropped event counts
func (d *Dispatcher) Stats() (delivered, failed, dropped int64) {
	return d.delivered.Load(), d.failed.Load(), d.dropped.Load()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for ev := range d.events {
		if err := d.deliver(ev); err != nil {
			d.failed.Add(1)
			d.log.Warn("click event delivery failed",
				"worker", id,
				"short_code", ev.ShortCode,
				"error", err.Error())
			continue
		}
		d.delivered.Add(1)
	}
}

func (d *Dispatcher) deliver(ev model.ClickEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return d.sink.Record(ctx, ev)
}
