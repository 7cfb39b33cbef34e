package notif

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gochats/internal/common"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateReady:
		return "READY"
	default:
		return "DISCONNECTED"
	}
}

// Publisher is the bus connection once established.
type Publisher interface {
	Publish(subject string, data []byte) error
	Close()
}

// Connector establishes the bus connection. It is called once, from Start.
type Connector func(ctx context.Context) (Publisher, error)

type Options struct {
	Topic      string
	MaxRetries int
	RetryDelay time.Duration
}

// Dispatcher publishes events to the bus in the background. Events that arrive before the
// connection is ready wait behind a bounded retry and are dropped when it runs out.
type Dispatcher struct {
	connect Connector
	opts    Options
	logger  *slog.Logger

	state atomic.Int32
	mu    sync.RWMutex
	pub   Publisher

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
}

var _ common.Notifier = (*Dispatcher)(nil)

func NewDispatcher(connect Connector, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		connect: connect,
		opts:    opts,
		logger:  logger.With("component", "notif"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Start makes the single background connection attempt. Later calls do nothing.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		if d.ctx.Err() != nil {
			return
		}
		if !d.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
			return
		}
		d.wg.Add(1)
		go d.run()
	})
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	pub, err := d.connect(d.ctx)
	if err != nil {
		d.state.Store(int32(StateDisconnected))
		d.logger.Warn("notification bus connection failed", "error", err)
		return
	}

	d.mu.Lock()
	if d.ctx.Err() != nil {
		d.mu.Unlock()
		pub.Close()
		d.state.Store(int32(StateDisconnected))
		return
	}
	d.pub = pub
	d.state.Store(int32(StateReady))
	d.mu.Unlock()

	d.logger.Info("notification bus ready", "topic", d.opts.Topic)
}

// Notify returns immediately; delivery happens on its own goroutine.
func (d *Dispatcher) Notify(event common.NotificationEvent) {
	d.mu.RLock()
	if d.ctx.Err() != nil {
		d.mu.RUnlock()
		eventsDropped.Inc()
		d.logger.Warn("dispatcher stopped, dropping event", "event_id", event.EventID, "type", event.Type)
		return
	}
	d.wg.Add(1)
	d.mu.RUnlock()

	go func() {
		defer d.wg.Done()
		d.dispatch(event)
	}()
}

func (d *Dispatcher) dispatch(event common.NotificationEvent) {
	if !d.awaitReady(event) {
		eventsDropped.Inc()
		d.logger.Error("notification bus not ready, no retries left", "event_id", event.EventID, "type", event.Type)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		publishFailures.Inc()
		d.logger.Error("failed to encode notification", "event_id", event.EventID, "error", err)
		return
	}

	d.mu.RLock()
	pub := d.pub
	d.mu.RUnlock()
	if pub == nil {
		eventsDropped.Inc()
		return
	}

	if err := pub.Publish(d.opts.Topic, payload); err != nil {
		publishFailures.Inc()
		d.logger.Error("failed to publish notification", "event_id", event.EventID, "error", err)
		return
	}
	eventsPublished.Inc()
	d.logger.Debug("notification published", "event_id", event.EventID, "type", event.Type)
}

// awaitReady checks readiness, then re-checks up to MaxRetries times with RetryDelay in between.
func (d *Dispatcher) awaitReady(event common.NotificationEvent) bool {
	retriesLeft := d.opts.MaxRetries
	for d.State() != StateReady {
		if retriesLeft == 0 {
			return false
		}
		retriesLeft--
		d.logger.Debug("notification bus not ready, retrying",
			"event_id", event.EventID,
			"delay", d.opts.RetryDelay,
			"retries_left", retriesLeft,
		)

		timer := time.NewTimer(d.opts.RetryDelay)
		select {
		case <-timer.C:
		case <-d.ctx.Done():
			timer.Stop()
			return false
		}
	}
	return true
}

// Shutdown stops pending retries, waits for in-flight publishes and closes the connection.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	// no wg.Add can happen once cancel is visible under the lock
	d.mu.Lock()
	d.cancel()
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.mu.Lock()
	pub := d.pub
	d.pub = nil
	d.mu.Unlock()
	if pub != nil {
		pub.Close()
	}
	d.state.Store(int32(StateDisconnected))
	d.logger.Info("notification dispatcher shutdown complete")
	return nil
}
