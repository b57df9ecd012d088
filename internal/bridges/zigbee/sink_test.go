package zigbee

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
)

type recordedPoint struct {
	deviceID   string
	capability string
	value      any
}

type fakeRecorder struct {
	points []recordedPoint
	err    error
}

func (f *fakeRecorder) WriteCapability(deviceID, c string, value any) error {
	f.points = append(f.points, recordedPoint{deviceID, c, value})
	return f.err
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]map[string]any
	stamps  []time.Time
	err     error
}

func (f *fakeCache) Set(_ context.Context, deviceID, c string, value any, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.entries == nil {
		f.entries = make(map[string]map[string]any)
	}
	if f.entries[deviceID] == nil {
		f.entries[deviceID] = make(map[string]any)
	}
	f.entries[deviceID][c] = value
	f.stamps = append(f.stamps, ts)
	return nil
}

func (f *fakeCache) Delete(_ context.Context, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, deviceID)
	return nil
}

func (f *fakeCache) value(deviceID, c string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[deviceID][c]
	return v, ok
}

// stallingCache blocks every Set until release is closed.
type stallingCache struct {
	release chan struct{}
	sets    atomic.Int32
}

func (s *stallingCache) Set(ctx context.Context, _, _ string, _ any, _ time.Time) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.sets.Add(1)
	return nil
}

func (s *stallingCache) Delete(context.Context, string) error { return nil }

// ─── Fan-out ────────────────────────────────────────────────────────

func TestSink_FansOut(t *testing.T) {
	pub := newMockMQTT()
	rec := &fakeRecorder{}
	cache := &fakeCache{}
	sink := NewSink(pub, rec, cache)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	if err := sink.SetCapabilityValue(context.Background(), "plug-1", capability.MeasurePower, 42.0); err != nil {
		t.Fatalf("SetCapabilityValue() error = %v", err)
	}
	sink.Close()

	if got := stateValue(t, pub, "plug-1", "measure_power"); got != 42.0 {
		t.Errorf("published value = %v", got)
	}
	if len(rec.points) != 1 || rec.points[0] != (recordedPoint{"plug-1", "measure_power", 42.0}) {
		t.Errorf("recorded = %+v", rec.points)
	}
	if v, _ := cache.value("plug-1", "measure_power"); v != 42.0 || !cache.stamps[0].Equal(fixed) {
		t.Errorf("cache = %+v %v", cache.entries, cache.stamps)
	}

	if err := sink.Forget(context.Background(), "plug-1"); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.value("plug-1", "measure_power"); ok {
		t.Error("Forget() left cached values")
	}
}

func TestSink_ForgetOrderedAfterQueuedValues(t *testing.T) {
	cache := &fakeCache{}
	sink := NewSink(newMockMQTT(), nil, cache)
	defer sink.Close()

	for i := range 10 {
		if err := sink.SetCapabilityValue(context.Background(), "plug-1", capability.MeasurePower, float64(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Forget(context.Background(), "plug-1"); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	if v, ok := cache.value("plug-1", "measure_power"); ok {
		t.Errorf("value %v survived Forget()", v)
	}
}

// ─── Failures ───────────────────────────────────────────────────────

func TestSink_JoinsFailures(t *testing.T) {
	errPub := errors.New("broker down")
	errRec := errors.New("influx down")

	pub := newMockMQTT()
	pub.publishErr = errPub
	rec := &fakeRecorder{err: errRec}

	sink := NewSink(pub, rec, nil)
	err := sink.SetCapabilityValue(context.Background(), "d", capability.OnOff, true)
	for _, want := range []error{errPub, errRec} {
		if !errors.Is(err, want) {
			t.Errorf("error %v does not wrap %v", err, want)
		}
	}
	if len(rec.points) != 1 {
		t.Error("recorder skipped after publish failure")
	}
}

func TestSink_CacheFailureReportedSeparately(t *testing.T) {
	errCache := errors.New("redis down")
	sink := NewSink(newMockMQTT(), nil, &fakeCache{err: errCache})

	var (
		mu     sync.Mutex
		failed []error
	)
	sink.SetCacheErrorHook(func(deviceID string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if deviceID != "d" {
			t.Errorf("hook device = %q", deviceID)
		}
		failed = append(failed, err)
	})

	if err := sink.SetCapabilityValue(context.Background(), "d", capability.OnOff, true); err != nil {
		t.Errorf("SetCapabilityValue() error = %v, want nil for cache failure", err)
	}
	sink.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 1 || !errors.Is(failed[0], errCache) {
		t.Errorf("cache errors = %v, want [%v]", failed, errCache)
	}
}

func TestSink_SlowCacheDoesNotBlock(t *testing.T) {
	cache := &stallingCache{release: make(chan struct{})}
	sink := NewSink(newMockMQTT(), nil, cache)

	start := time.Now()
	for range 5 {
		if err := sink.SetCapabilityValue(context.Background(), "meter-1", capability.MeasurePower, 1.0); err != nil {
			t.Fatalf("SetCapabilityValue() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("SetCapabilityValue() took %v with a stalled cache", elapsed)
	}

	close(cache.release)
	sink.Close()
	if got := cache.sets.Load(); got != 5 {
		t.Errorf("cache sets = %d, want 5", got)
	}
}

func TestSink_FullQueueDropsAndReports(t *testing.T) {
	cache := &stallingCache{release: make(chan struct{})}
	sink := NewSink(newMockMQTT(), nil, cache)

	var dropped atomic.Int32
	sink.SetCacheErrorHook(func(_ string, err error) {
		if errors.Is(err, ErrCacheQueueFull) {
			dropped.Add(1)
		}
	})

	// One op is held by the worker, the rest fill the queue.
	total := cacheQueueSize + 10
	for range total {
		_ = sink.SetCapabilityValue(context.Background(), "meter-1", capability.MeasurePower, 1.0)
	}
	close(cache.release)
	sink.Close()

	if got := int(dropped.Load()) + int(cache.sets.Load()); got != total {
		t.Errorf("dropped+stored = %d, want %d", got, total)
	}
	if dropped.Load() == 0 {
		t.Error("no values dropped with a full queue")
	}
}

func TestSink_WritesAfterCloseReported(t *testing.T) {
	sink := NewSink(newMockMQTT(), nil, &fakeCache{})
	sink.Close()
	sink.Close()

	var got error
	sink.SetCacheErrorHook(func(_ string, err error) { got = err })
	if err := sink.SetCapabilityValue(context.Background(), "d", capability.OnOff, true); err != nil {
		t.Fatalf("SetCapabilityValue() error = %v", err)
	}
	if !errors.Is(got, ErrSinkClosed) {
		t.Errorf("cache error = %v, want ErrSinkClosed", got)
	}
}

func TestSink_OptionalDestinations(t *testing.T) {
	pub := newMockMQTT()
	sink := NewSink(pub, nil, nil)
	defer sink.Close()

	if err := sink.SetCapabilityValue(context.Background(), "d", capability.OnOff, true); err != nil {
		t.Fatalf("SetCapabilityValue() error = %v", err)
	}
	if got := stateValue(t, pub, "d", "onoff"); got != true {
		t.Errorf("onoff = %v", got)
	}
	if err := sink.Forget(context.Background(), "d"); err != nil {
		t.Errorf("Forget() without cache error = %v", err)
	}
}
