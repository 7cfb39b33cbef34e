package notif

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochats/internal/common"
)

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
	closed   atomic.Bool
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

func (f *fakePublisher) Close() { f.closed.Store(true) }

func (f *fakePublisher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func connectTo(pub Publisher, attempts *atomic.Int32) Connector {
	return func(context.Context) (Publisher, error) {
		if attempts != nil {
			attempts.Add(1)
		}
		return pub, nil
	}
}

func testEvent() common.NotificationEvent {
	return common.NotificationEvent{
		EventID:       "evt-1",
		Type:          common.MessageCreatedType,
		Service:       "CHATS",
		UserID:        "user2",
		TriggerUserID: "user1",
		Data:          map[string]string{"messageContent": "hi"},
		Timestamp:     time.Now().UTC(),
	}
}

func newTestDispatcher(connect Connector, retries int, delay time.Duration) *Dispatcher {
	return NewDispatcher(connect, Options{Topic: "notification", MaxRetries: retries, RetryDelay: delay}, common.DiscardLogger())
}

func shutdown(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))
}

func TestDispatcher_PublishesWhenReady(t *testing.T) {
	pub := &fakePublisher{}
	var attempts atomic.Int32
	d := newTestDispatcher(connectTo(pub, &attempts), 5, 10*time.Millisecond)

	assert.Equal(t, StateDisconnected, d.State())
	d.Start()
	d.Start()
	require.Eventually(t, func() bool { return d.State() == StateReady }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), attempts.Load())

	d.Notify(testEvent())
	require.Eventually(t, func() bool { return pub.calls() == 1 }, time.Second, 5*time.Millisecond)

	pub.mu.Lock()
	assert.Equal(t, "notification", pub.subjects[0])
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	pub.mu.Unlock()

	assert.Equal(t, "MESSAGE_CREATED", decoded["type"])
	assert.Equal(t, "user2", decoded["userId"])
	assert.Equal(t, "user1", decoded["triggerUserId"])
	assert.Equal(t, "CHATS", decoded["service"])

	shutdown(t, d)
	assert.True(t, pub.closed.Load())
	assert.Equal(t, StateDisconnected, d.State())
}

func TestDispatcher_WaitsForConnection(t *testing.T) {
	pub := &fakePublisher{}
	release := make(chan struct{})
	d := newTestDispatcher(func(context.Context) (Publisher, error) {
		<-release
		return pub, nil
	}, 50, 5*time.Millisecond)

	d.Start()
	assert.Equal(t, StateConnecting, d.State())

	d.Notify(testEvent())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, pub.calls())

	close(release)
	require.Eventually(t, func() bool { return pub.calls() == 1 }, time.Second, 5*time.Millisecond)

	shutdown(t, d)
}

func TestDispatcher_DropsAfterRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	d := newTestDispatcher(func(context.Context) (Publisher, error) {
		attempts.Add(1)
		return nil, errors.New("connection refused")
	}, 3, 5*time.Millisecond)

	d.Start()
	require.Eventually(t, func() bool { return attempts.Load() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return d.State() == StateDisconnected }, time.Second, time.Millisecond)

	d.Notify(testEvent())
	d.Notify(testEvent())

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry loop did not terminate")
	}

	// a failed connection is not retried
	assert.Equal(t, int32(1), attempts.Load())
	shutdown(t, d)
}

func TestDispatcher_NotifyDoesNotBlock(t *testing.T) {
	d := newTestDispatcher(func(ctx context.Context) (Publisher, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, 5, time.Hour)
	d.Start()

	start := time.Now()
	for i := 0; i < 10; i++ {
		d.Notify(testEvent())
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	// shutdown cancels the pending retries instead of waiting out the delay
	shutdown(t, d)
}

func TestDispatcher_PublishErrorIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	d := newTestDispatcher(connectTo(pub, nil), 5, time.Millisecond)
	d.Start()
	require.Eventually(t, func() bool { return d.State() == StateReady }, time.Second, time.Millisecond)

	d.Notify(testEvent())
	require.Eventually(t, func() bool { return pub.calls() == 1 }, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, pub.calls(), "failed publishes are not redelivered")
	shutdown(t, d)
}

func TestDispatcher_NotifyAfterShutdown(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(connectTo(pub, nil), 5, time.Millisecond)
	d.Start()
	require.Eventually(t, func() bool { return d.State() == StateReady }, time.Second, time.Millisecond)
	shutdown(t, d)

	d.Notify(testEvent())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, pub.calls())
}

func TestDispatcher_ZeroRetriesDropsImmediately(t *testing.T) {
	d := newTestDispatcher(func(ctx context.Context) (Publisher, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, 0, time.Hour)
	d.Start()

	before := testutil.ToFloat64(eventsDropped)
	d.Notify(testEvent())
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(eventsDropped) == before+1
	}, time.Second, time.Millisecond)

	shutdown(t, d)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "DISCONNECTED", StateDisconnected.String())
	assert.Equal(t, "CONNECTING", StateConnecting.String())
	assert.Equal(t, "READY", StateReady.String())
}
