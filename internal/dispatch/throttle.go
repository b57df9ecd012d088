package dispatch

import (
	"sync"
	"time"
)

// DefaultUndefinedLogWindow is the default suppression window for repeated
// undefined-value logs from the same (device, datapoint).
const DefaultUndefinedLogWindow = 60 * time.Second

type throttleKey struct {
	deviceID string
	id       int
}

type throttleEntry struct {
	last       time.Time
	suppressed int
}

// logThrottle admits the first event per key and suppresses repeats until
// the window has elapsed since the last admitted event.
type logThrottle struct {
	window time.Duration

	mu      sync.Mutex
	entries map[throttleKey]*throttleEntry
}

func newLogThrottle(window time.Duration) *logThrottle {
	if window <= 0 {
		window = DefaultUndefinedLogWindow
	}
	return &logThrottle{
		window:  window,
		entries: make(map[throttleKey]*throttleEntry),
	}
}

// allow reports whether an event for key at now should be logged. When it
// returns true, suppressed is the number of events dropped since the last
// admitted one.
func (t *logThrottle) allow(key throttleKey, now time.Time) (ok bool, suppressed int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, exists := t.entries[key]
	if !exists {
		t.entries[key] = &throttleEntry{last: now}
		return true, 0
	}
	if now.Sub(e.last) < t.window {
		e.suppressed++
		return false, 0
	}
	suppressed = e.suppressed
	e.last = now
	e.suppressed = 0
	return true, suppressed
}

// forget drops all entries for a device.
func (t *logThrottle) forget(deviceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.entries {
		if k.deviceID == deviceID {
			delete(t.entries, k)
		}
	}
}
