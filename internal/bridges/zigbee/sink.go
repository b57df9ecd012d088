package zigbee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/mqtt"
)

const (
	// cacheQueueSize bounds pending last-value cache operations. Values
	// arriving while the queue is full are dropped and reported.
	cacheQueueSize = 1024

	// cacheOpTimeout bounds a single cache operation on the worker.
	cacheOpTimeout = 2 * time.Second
)

// Publisher is the MQTT surface the sink needs.
type Publisher interface {
	PublishAsync(topic string, payload []byte, qos byte, retained bool, done func(error)) error
	Topics() mqtt.Topics
	QoS() byte
}

// Recorder stores capability values as time-series points.
// Satisfied by *influxdb.Client, whose writes are already non-blocking.
type Recorder interface {
	WriteCapability(deviceID, capability string, value any) error
}

// StateCache keeps last-known values. Satisfied by *statecache.Cache.
type StateCache interface {
	Set(ctx context.Context, deviceID, capability string, value any, ts time.Time) error
	Delete(ctx context.Context, deviceID string) error
}

type cacheOp struct {
	deviceID   string
	capability string
	value      any
	ts         time.Time
	remove     bool
	done       chan error
}

// Sink is the host-platform capability write interface backed by MQTT,
// with optional time-series recording and last-value caching.
//
// No destination blocks the caller. The MQTT publish is acknowledged
// asynchronously, the recorder batches in the background, and cache
// operations are queued to a single worker that applies them in order.
// Cache failures never fail a write; they go to the logger and the cache
// error hook.
type Sink struct {
	publisher Publisher
	recorder  Recorder
	cache     StateCache
	now       func() time.Time

	queue  chan cacheOp
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	logger       Logger
	onCacheError func(deviceID string, err error)
}

// NewSink creates a sink. recorder and cache may be nil. With a cache a
// worker is started; Close stops it.
func NewSink(p Publisher, recorder Recorder, cache StateCache) *Sink {
	s := &Sink{
		publisher: p,
		recorder:  recorder,
		cache:     cache,
		now:       time.Now,
		logger:    noopLogger{},
	}
	if cache != nil {
		s.queue = make(chan cacheOp, cacheQueueSize)
		s.wg.Add(1)
		go s.runCache()
	}
	return s
}

// SetLogger sets the logger used for cache failures.
func (s *Sink) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// SetCacheErrorHook registers fn to be called for every cache operation
// that failed or was dropped.
func (s *Sink) SetCacheErrorHook(fn func(deviceID string, err error)) {
	s.mu.Lock()
	s.onCacheError = fn
	s.mu.Unlock()
}

// SetCapabilityValue publishes the value retained on the capability state
// topic, forwards it to the recorder and queues it for the cache. The
// returned error joins publish and recorder failures.
func (s *Sink) SetCapabilityValue(_ context.Context, deviceID string, c capability.Capability, value any) error {
	ts := s.now().UTC()

	var errs []error

	payload, err := json.Marshal(StateMessage{Value: value, Timestamp: ts})
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", c, err)
	}
	topic := s.publisher.Topics().CapabilityState(deviceID, string(c))
	if err := s.publisher.PublishAsync(topic, payload, s.publisher.QoS(), true, nil); err != nil {
		errs = append(errs, fmt.Errorf("publish: %w", err))
	}

	if s.recorder != nil {
		if err := s.recorder.WriteCapability(deviceID, string(c), value); err != nil {
			errs = append(errs, fmt.Errorf("record: %w", err))
		}
	}

	if s.cache != nil {
		s.enqueue(cacheOp{deviceID: deviceID, capability: string(c), value: value, ts: ts})
	}

	return errors.Join(errs...)
}

func (s *Sink) enqueue(op cacheOp) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		s.cacheFailed(op.deviceID, ErrSinkClosed)
		return
	}
	select {
	case s.queue <- op:
		s.mu.RUnlock()
	default:
		s.mu.RUnlock()
		s.cacheFailed(op.deviceID, ErrCacheQueueFull)
	}
}

// Forget drops cached values of a removed device. The delete is ordered
// after every value already queued for that device.
func (s *Sink) Forget(ctx context.Context, deviceID string) error {
	if s.cache == nil {
		return nil
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return s.cache.Delete(ctx, deviceID)
	}
	op := cacheOp{deviceID: deviceID, remove: true, done: make(chan error, 1)}
	select {
	case s.queue <- op:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-op.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued cache operations and stops the worker. Safe to call
// more than once.
func (s *Sink) Close() {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Sink) runCache() {
	defer s.wg.Done()
	for op := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		var err error
		if op.remove {
			err = s.cache.Delete(ctx, op.deviceID)
		} else {
			err = s.cache.Set(ctx, op.deviceID, op.capability, op.value, op.ts)
		}
		cancel()

		if op.done != nil {
			op.done <- err
			continue
		}
		if err != nil {
			s.cacheFailed(op.deviceID, err)
		}
	}
}

func (s *Sink) cacheFailed(deviceID string, err error) {
	s.mu.RLock()
	logger, hook := s.logger, s.onCacheError
	s.mu.RUnlock()

	logger.Warn("state cache write failed", "device_id", deviceID, "error", err)
	if hook != nil {
		hook(deviceID, err)
	}
}
