package dispatch

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/datapoint"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

// BatteryAlarmThreshold is the battery percentage at or below which
// alarm_battery is raised.
const BatteryAlarmThreshold = 10.0

// Logger defines the logging interface used by the dispatcher.
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

// Hooks receive dispatcher events. Nil hooks are skipped.
type Hooks struct {
	UnknownDatapoint func(deviceID string, id int)
	WriteResult      func(c capability.Capability, err error)
}

// Config holds dispatcher settings.
type Config struct {
	// UndefinedLogWindow suppresses repeated undefined-value logs for the
	// same (device, datapoint) within this window.
	UndefinedLogWindow time.Duration
}

// Dispatcher routes decoded datapoints into capability writes.
//
// A Dispatcher holds no per-device state of its own beyond the log throttle;
// all device state lives in the *State passed to Apply. It is safe for
// concurrent use across devices.
type Dispatcher struct {
	throttle *logThrottle
	now      func() time.Time

	mu     sync.RWMutex
	logger Logger
	hooks  Hooks
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		throttle: newLogThrottle(cfg.UndefinedLogWindow),
		now:      time.Now,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	d.logger = logger
}

// SetHooks replaces the event hooks.
func (d *Dispatcher) SetHooks(h Hooks) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = h
}

// Forget releases throttle bookkeeping for a removed device.
func (d *Dispatcher) Forget(deviceID string) {
	d.throttle.forget(deviceID)
}

// Apply interprets one decoded datapoint against p and updates state.
//
// Undefined values and unknown ids are no-ops. Directional fields only
// update the stored direction flag. Magnitude fields are scaled,
// transformed, calibrated (power and current), signed by the stored
// direction (power), written directly when the field names a capability,
// stored, and every aggregate over the same quantity is recomputed.
//
// Returns the capability writes to emit, in order. A nil state or profile
// returns ErrNilState or ErrNilProfile.
func (d *Dispatcher) Apply(state *State, p *profile.Profile, v datapoint.Decoded) ([]Write, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if p == nil {
		return nil, ErrNilProfile
	}

	log := d.getLogger()

	if !v.HasID || v.Value.IsUndefined() {
		d.logUndefined(log, state.DeviceID, v)
		return nil, nil
	}

	rule, ok := p.Field(v.ID)
	if !ok {
		log.Info("unknown datapoint",
			"device_id", state.DeviceID,
			"profile", string(p.Name),
			"dp", v.ID,
			"value", v.Value.String(),
		)
		if h := d.getHooks().UnknownDatapoint; h != nil {
			h(state.DeviceID, v.ID)
		}
		return nil, nil
	}

	if rule.Boolean {
		return d.applyBoolean(state, rule, v), nil
	}

	raw, numeric := v.Value.Numeric()
	if !numeric {
		log.Debug("non-numeric value for numeric datapoint",
			"device_id", state.DeviceID,
			"dp", v.ID,
			"field", rule.Name,
			"value", v.Value.String(),
		)
		return nil, nil
	}

	if rule.AmbiguousWith != profile.ChannelNone {
		interp := ClassifyAmbiguous(raw)
		log.Debug("ambiguous datapoint classified",
			"device_id", state.DeviceID,
			"dp", v.ID,
			"raw", raw,
			"interpretation", interp.String(),
		)
		if interp == InterpretDirection {
			state.setReversed(rule.AmbiguousWith, raw != 0)
			return nil, nil
		}
	}

	if rule.Directional {
		state.setReversed(rule.Channel, raw != 0)
		log.Debug("direction updated",
			"device_id", state.DeviceID,
			"channel", rule.Channel.String(),
			"reversed", raw != 0,
		)
		return nil, nil
	}

	return d.applyMagnitude(state, p, rule, raw), nil
}

func (d *Dispatcher) applyBoolean(state *State, rule profile.FieldRule, v datapoint.Decoded) []Write {
	b, ok := v.Value.AsBool()
	if !ok {
		n, numeric := v.Value.Numeric()
		if !numeric {
			d.getLogger().Debug("non-boolean value for boolean datapoint",
				"device_id", state.DeviceID,
				"dp", v.ID,
				"value", v.Value.String(),
			)
			return nil
		}
		b = n != 0
	}
	if rule.Capability == "" {
		return nil
	}
	return []Write{{Capability: rule.Capability, Value: b}}
}

func (d *Dispatcher) applyMagnitude(state *State, p *profile.Profile, rule profile.FieldRule, raw int64) []Write {
	if rule.Signed {
		raw = int64(int32(uint32(raw))) //nolint:gosec // reinterpreting the wire bits
	}
	val := rule.Scale.Apply(float64(raw))
	if rule.Transform != nil {
		val = rule.Transform(val)
	}
	val = calibrate(state, rule.Quantity, val)
	if rule.Quantity == profile.QuantityPower && state.Reversed(rule.Channel) {
		val = -math.Abs(val)
	}
	val = profile.Round(val)

	var writes []Write
	if rule.Capability != "" {
		writes = append(writes, Write{Capability: rule.Capability, Value: val})
		writes = appendBatteryAlarm(writes, rule.Capability, val)
	}

	if rule.Quantity == profile.QuantityNone {
		return writes
	}

	state.setValue(rule.Quantity, rule.Channel, val)
	for _, agg := range p.AggregatesFor(rule.Quantity) {
		total, ok := state.sum(agg.Quantity, agg.Channels)
		if !ok {
			continue
		}
		writes = append(writes, Write{Capability: agg.Capability, Value: profile.Round(total)})
	}
	return writes
}

// ApplyAttribute maps a standard Zigbee attribute report to capability
// writes. Unknown attributes and non-numeric values produce no writes.
func (d *Dispatcher) ApplyAttribute(state *State, report AttributeReport) []Write {
	if state == nil {
		return nil
	}
	log := d.getLogger()

	rule, ok := profile.AttributeRuleFor(report.Attribute)
	if !ok {
		log.Info("unknown attribute",
			"device_id", state.DeviceID,
			"attribute", string(report.Attribute),
		)
		return nil
	}

	if report.Value.IsUndefined() {
		d.logUndefined(log, state.DeviceID, datapoint.Decoded{})
		return nil
	}

	if rule.Boolean {
		b, isBool := report.Value.AsBool()
		if !isBool {
			n, numeric := report.Value.Numeric()
			if !numeric {
				return nil
			}
			b = n != 0
		}
		return []Write{{Capability: rule.Capability, Value: b}}
	}

	raw, numeric := report.Value.Numeric()
	if !numeric {
		log.Debug("non-numeric attribute value",
			"device_id", state.DeviceID,
			"attribute", string(report.Attribute),
		)
		return nil
	}

	val := rule.Scale.Apply(float64(raw))
	switch rule.Capability.Base() {
	case capability.MeasurePower:
		val = calibrate(state, profile.QuantityPower, val)
	case capability.MeasureCurrent:
		val = calibrate(state, profile.QuantityCurrent, val)
	}
	val = profile.Round(val)

	writes := []Write{{Capability: rule.Capability, Value: val}}
	return appendBatteryAlarm(writes, rule.Capability, val)
}

// Emit delivers writes to w. Each failure is logged with its capability and
// value and counted; delivery continues with the next write and nothing is
// retried. Returns the number of failed writes.
func (d *Dispatcher) Emit(ctx context.Context, deviceID string, w Writer, writes []Write) int {
	log := d.getLogger()
	hook := d.getHooks().WriteResult

	failed := 0
	for _, wr := range writes {
		err := w.SetCapabilityValue(ctx, deviceID, wr.Capability, wr.Value)
		if hook != nil {
			hook(wr.Capability, err)
		}
		if err != nil {
			failed++
			log.Error("capability write failed",
				"device_id", deviceID,
				"capability", string(wr.Capability),
				"value", wr.Value,
				"error", err,
			)
		}
	}
	return failed
}

func (d *Dispatcher) logUndefined(log Logger, deviceID string, v datapoint.Decoded) {
	allowed, suppressed := d.throttle.allow(throttleKey{deviceID: deviceID, id: v.ID}, d.now())
	if !allowed {
		return
	}
	args := []any{"device_id", deviceID, "dp", v.ID, "has_id", v.HasID}
	if suppressed > 0 {
		args = append(args, "suppressed", suppressed)
	}
	log.Debug("undefined datapoint value ignored", args...)
}

func (d *Dispatcher) getLogger() Logger {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.logger
}

func (d *Dispatcher) getHooks() Hooks {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hooks
}

func calibrate(state *State, q profile.Quantity, val float64) float64 {
	switch q {
	case profile.QuantityPower, profile.QuantityCurrent:
		return val * state.CalibrationRatio()
	default:
		return val
	}
}

func appendBatteryAlarm(writes []Write, c capability.Capability, val float64) []Write {
	if c.Base() != capability.MeasureBattery {
		return writes
	}
	return append(writes, Write{Capability: capability.AlarmBattery, Value: val <= BatteryAlarmThreshold})
}

// AttributeReport is a standard (non-EF00) attribute report.
type AttributeReport struct {
	Attribute profile.Attribute
	Value     datapoint.Value
}
