package capability

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the mutator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Instance is the host-platform view of a device instance that can gain
// capabilities. There is deliberately no removal method.
type Instance interface {
	ID() string
	Class() Class
	HasCapability(c Capability) bool
	AddCapability(ctx context.Context, c Capability) error
}

// Outcome is the result of one SafeAdd call, reported to an optional hook.
type Outcome string

// SafeAdd outcomes.
const (
	OutcomeAdded   Outcome = "added"
	OutcomePresent Outcome = "present"
	OutcomeBlocked Outcome = "blocked"
	OutcomeFailed  Outcome = "failed"
)

// Mutator adds capabilities to instances, enforcing the class denylist.
//
// All operations are additive and idempotent. Mutator is safe for concurrent
// use.
type Mutator struct {
	denylist Denylist

	mu      sync.RWMutex
	logger  Logger
	observe func(Outcome)
}

// NewMutator creates a mutator using the default denylist.
func NewMutator() *Mutator {
	return NewMutatorWithDenylist(DefaultDenylist())
}

// NewMutatorWithDenylist creates a mutator with a custom denylist.
func NewMutatorWithDenylist(d Denylist) *Mutator {
	return &Mutator{
		denylist: d,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the mutator.
func (m *Mutator) SetLogger(logger Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	m.logger = logger
}

// SetObserver registers a callback invoked with each SafeAdd outcome.
// Used for metrics.
func (m *Mutator) SetObserver(fn func(Outcome)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observe = fn
}

// Denied reports whether class must not receive c.
func (m *Mutator) Denied(class Class, c Capability) bool {
	return m.denylist.Denies(class, c)
}

// SafeAdd adds c to inst if allowed.
//
// Returns true when the capability is present afterwards (newly added or
// already there) and false when it was blocked by the denylist or the
// platform call failed or panicked. The denylist is checked before presence,
// so a denied capability reports false even if some earlier code path
// attached it.
func (m *Mutator) SafeAdd(ctx context.Context, inst Instance, c Capability) bool {
	outcome := m.safeAdd(ctx, inst, c)
	m.record(outcome)
	return outcome == OutcomeAdded || outcome == OutcomePresent
}

func (m *Mutator) safeAdd(ctx context.Context, inst Instance, c Capability) Outcome {
	log := m.getLogger()
	class := inst.Class()

	if m.denylist.Denies(class, c) {
		log.Warn("capability denied for device class",
			"device_id", inst.ID(),
			"class", string(class),
			"capability", string(c),
		)
		return OutcomeBlocked
	}

	if inst.HasCapability(c) {
		return OutcomePresent
	}

	if err := m.callAdd(ctx, inst, c); err != nil {
		log.Error("adding capability failed",
			"device_id", inst.ID(),
			"capability", string(c),
			"error", err,
		)
		return OutcomeFailed
	}

	log.Info("capability added",
		"device_id", inst.ID(),
		"capability", string(c),
	)
	return OutcomeAdded
}

// callAdd invokes the platform and converts a panic into an error.
func (m *Mutator) callAdd(ctx context.Context, inst Instance, c Capability) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPlatformPanic, r)
		}
	}()
	return inst.AddCapability(ctx, c)
}

// ReconcileResult summarises a Reconcile run. Each slice keeps input order.
type ReconcileResult struct {
	Added   []Capability
	Present []Capability
	Blocked []Capability
	Failed  []Capability
}

// Changed reports whether any capability was added.
func (r ReconcileResult) Changed() bool {
	return len(r.Added) > 0
}

// Reconcile runs SafeAdd over caps. Duplicates in caps are processed once.
func (m *Mutator) Reconcile(ctx context.Context, inst Instance, caps []Capability) ReconcileResult {
	var res ReconcileResult
	seen := make(Set, len(caps))

	for _, c := range caps {
		if seen.Has(c) {
			continue
		}
		seen.Add(c)

		outcome := m.safeAdd(ctx, inst, c)
		m.record(outcome)

		switch outcome {
		case OutcomeAdded:
			res.Added = append(res.Added, c)
		case OutcomePresent:
			res.Present = append(res.Present, c)
		case OutcomeBlocked:
			res.Blocked = append(res.Blocked, c)
		case OutcomeFailed:
			res.Failed = append(res.Failed, c)
		}
	}

	return res
}

func (m *Mutator) getLogger() Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logger
}

func (m *Mutator) record(o Outcome) {
	m.mu.RLock()
	fn := m.observe
	m.mu.RUnlock()
	if fn != nil {
		fn(o)
	}
}
