package zigbee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/datapoint"
	"github.com/nerrad567/gray-logic-zigbee/internal/device"
	"github.com/nerrad567/gray-logic-zigbee/internal/dispatch"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-zigbee/internal/topology"
)

const (
	// handlerTimeout bounds registry and sink calls made for one message.
	handlerTimeout = 5 * time.Second

	// subscribeQoS is used for every inbound subscription.
	subscribeQoS = 1
)

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTClient is the MQTT surface the bridge needs. Satisfied by
// *mqtt.Client and by mocks in tests.
type MQTTClient interface {
	Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// DeviceRegistry persists device records and grants capabilities.
// Satisfied by *device.Registry.
type DeviceRegistry interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	ListDevices() []device.Device
	GetDeviceCount() int
	Upsert(ctx context.Context, d *device.Device) (created bool, err error)
	DeleteDevice(ctx context.Context, id string) error
	SetSettings(ctx context.Context, id string, s device.Settings) error
	SetHealth(ctx context.Context, id string, status device.HealthStatus) error
	Instance(ctx context.Context, id string) (capability.Instance, error)
}

// Metrics receives bridge counters. Satisfied by *metrics.Metrics.
type Metrics interface {
	FrameReceived(kind string)
	SetSessions(n int)
	InterviewFailed()
}

// Forgetter is implemented by writers that keep per-device data.
type Forgetter interface {
	Forget(ctx context.Context, deviceID string) error
}

// Options holds the bridge's collaborators.
type Options struct {
	MQTT       MQTTClient
	Registry   DeviceRegistry
	Resolver   *Resolver
	Dispatcher *dispatch.Dispatcher
	Mutator    *capability.Mutator

	// Writer receives capability values. Defaults to a Sink publishing on
	// MQTT only.
	Writer dispatch.Writer

	// Metrics is optional.
	Metrics Metrics

	// Logger is optional.
	Logger Logger

	// DefaultCalibrationRatio applies to devices without a stored ratio.
	DefaultCalibrationRatio float64

	// Version is reported in health messages.
	Version string

	// HealthInterval is the health publish period. Zero disables the
	// periodic report; start and stop are still published.
	HealthInterval time.Duration
}

// Bridge connects the Zigbee transport to the semantics engine.
//
// Inbound interviews resolve profile, descriptor and topology and reconcile
// the device's capability set. Datapoint and attribute messages are decoded
// and dispatched into capability writes on the device's session.
//
// Thread Safety: all methods are safe for concurrent use. Messages for the
// same device are serialised by the device's session.
type Bridge struct {
	mqtt       MQTTClient
	registry   DeviceRegistry
	resolver   *Resolver
	dispatcher *dispatch.Dispatcher
	mutator    *capability.Mutator
	writer     dispatch.Writer
	metrics    Metrics
	logger     Logger

	defaultRatio   float64
	version        string
	healthInterval time.Duration
	startTime      time.Time

	sessions map[string]*session
	sessMu   sync.RWMutex

	subscribed []string

	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewBridge validates opts and creates a bridge. Call Start to subscribe.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, errors.New("zigbee: MQTT client is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("zigbee: device registry is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("zigbee: resolver is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("zigbee: dispatcher is required")
	}
	if opts.Mutator == nil {
		return nil, errors.New("zigbee: mutator is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		mqtt:           opts.MQTT,
		registry:       opts.Registry,
		resolver:       opts.Resolver,
		dispatcher:     opts.Dispatcher,
		mutator:        opts.Mutator,
		writer:         opts.Writer,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		defaultRatio:   opts.DefaultCalibrationRatio,
		version:        opts.Version,
		healthInterval: opts.HealthInterval,
		startTime:      time.Now(),
		sessions:       make(map[string]*session),
		ctx:            ctx,
		ctxCancel:      cancel,
	}
	if b.writer == nil {
		b.writer = NewSink(opts.MQTT, nil, nil)
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	if b.defaultRatio <= 0 {
		b.defaultRatio = dispatch.DefaultCalibrationRatio
	}
	return b, nil
}

// Start opens sessions for every registered device, subscribes to the
// inbound topics and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	for _, d := range b.registry.ListDevices() {
		b.openSession(&d)
	}

	b.publishHealth(HealthStarting)

	topics := b.mqtt.Topics()
	for _, kind := range mqtt.InboundKinds() {
		topic := topics.AllInbound(kind)
		if err := b.mqtt.Subscribe(topic, subscribeQoS, b.HandleMessage); err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		b.subscribed = append(b.subscribed, topic)
	}

	if b.healthInterval > 0 {
		b.wg.Add(1)
		go b.healthLoop(ctx)
	}

	b.publishHealth(HealthHealthy)
	b.logger.Info("bridge started", "devices", b.registry.GetDeviceCount(), "sessions", b.SessionCount())
	return nil
}

// Stop unsubscribes, stops health reporting and publishes a final status.
// Safe to call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		b.wg.Wait()

		for _, topic := range b.subscribed {
			if err := b.mqtt.Unsubscribe(topic); err != nil {
				b.logger.Debug("unsubscribe failed", "topic", topic, "error", err)
			}
		}
		b.publishHealth(HealthStopping)
		b.logger.Info("bridge stopped")
	})
}

// HandleMessage routes one inbound message. It is the MQTT handler for
// every inbound subscription.
func (b *Bridge) HandleMessage(topic string, payload []byte) error {
	kind, deviceID, ok := b.mqtt.Topics().ParseInbound(topic)
	if !ok {
		return fmt.Errorf("%w: topic %q", ErrInvalidMessage, topic)
	}
	if b.metrics != nil {
		b.metrics.FrameReceived(kind)
	}

	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	defer cancel()

	switch kind {
	case mqtt.KindInterview:
		var msg InterviewMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("%w: interview: %w", ErrInvalidMessage, err)
		}
		_, err := b.Interview(ctx, deviceID, msg)
		return err
	case mqtt.KindDatapoint:
		var msg DatapointMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("%w: datapoint: %w", ErrInvalidMessage, err)
		}
		return b.HandleDatapoints(ctx, deviceID, msg)
	case mqtt.KindAttribute:
		var msg AttributeMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("%w: attribute: %w", ErrInvalidMessage, err)
		}
		return b.HandleAttribute(ctx, deviceID, msg)
	case mqtt.KindSettings:
		var msg SettingsMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("%w: settings: %w", ErrInvalidMessage, err)
		}
		return b.UpdateSettings(ctx, deviceID, msg)
	case mqtt.KindRemoved:
		return b.Remove(ctx, deviceID)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// Interview registers a device (or refreshes its record), reconciles its
// capability set additively and opens a fresh session. The resulting
// capability set is announced retained on the capabilities topic.
func (b *Bridge) Interview(ctx context.Context, deviceID string, msg InterviewMessage) (Resolution, error) {
	res := b.resolver.Resolve(msg.Model, msg.Manufacturer, msg.Endpoints)

	d := &device.Device{
		ID:           deviceID,
		Name:         msg.Name,
		IEEEAddress:  device.NormaliseIEEE(msg.IEEEAddress),
		Model:        msg.Model,
		Manufacturer: msg.Manufacturer,
		Class:        res.Class,
		Profile:      res.Profile,
		GangCount:    res.Topology.GangCount,
		Endpoints:    msg.Endpoints,
		HealthStatus: device.HealthOnline,
	}
	d.ApplyDescriptor(res.Descriptor)
	if msg.Class != "" {
		d.Class = msg.Class
	}

	created, err := b.registry.Upsert(ctx, d)
	if err != nil {
		if b.metrics != nil {
			b.metrics.InterviewFailed()
		}
		return res, fmt.Errorf("registering %s: %w", deviceID, err)
	}

	inst, err := b.registry.Instance(ctx, deviceID)
	if err != nil {
		return res, fmt.Errorf("loading %s: %w", deviceID, err)
	}
	rec := b.mutator.Reconcile(ctx, inst, res.Capabilities)

	stored, err := b.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return res, fmt.Errorf("loading %s: %w", deviceID, err)
	}
	b.openSession(stored)

	b.logger.Info("device interviewed",
		"device_id", deviceID,
		"created", created,
		"model", msg.Model,
		"manufacturer", msg.Manufacturer,
		"profile", string(res.Profile),
		"class", string(stored.Class),
		"gang_count", res.Topology.GangCount,
		"added", len(rec.Added),
		"blocked", len(rec.Blocked),
		"failed", len(rec.Failed),
	)

	b.announceCapabilities(stored, rec.Blocked)
	return res, nil
}

// HandleDatapoints decodes and dispatches a datapoint message. Frames are
// applied in order; a truncated raw payload still dispatches the frames
// parsed before the truncation.
func (b *Bridge) HandleDatapoints(ctx context.Context, deviceID string, msg DatapointMessage) error {
	s, err := b.session(deviceID)
	if err != nil {
		return err
	}

	frames, parseErr := msg.DecodeFrames()
	if parseErr != nil {
		b.logger.Warn("datapoint message partially parsed",
			"device_id", deviceID,
			"frames", len(frames),
			"error", parseErr,
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range frames {
		writes, err := b.dispatcher.Apply(s.state, s.profile, datapoint.Decode(f))
		if err != nil {
			return err
		}
		b.dispatcher.Emit(ctx, deviceID, b.writer, writes)
	}
	b.markOnline(ctx, s)
	return parseErr
}

// HandleAttribute dispatches a standard attribute report.
func (b *Bridge) HandleAttribute(ctx context.Context, deviceID string, msg AttributeMessage) error {
	s, err := b.session(deviceID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	writes := b.dispatcher.ApplyAttribute(s.state, dispatch.AttributeReport{
		Attribute: msg.Attribute,
		Value:     msg.DecodedValue(),
	})
	b.dispatcher.Emit(ctx, deviceID, b.writer, writes)
	b.markOnline(ctx, s)
	return nil
}

// UpdateSettings persists new settings and refreshes the session snapshot.
// A missing or zero calibration ratio restores the default.
func (b *Bridge) UpdateSettings(ctx context.Context, deviceID string, msg SettingsMessage) error {
	s, err := b.session(deviceID)
	if err != nil {
		return err
	}

	var settings device.Settings
	if msg.CalibrationRatio != nil {
		settings.CalibrationRatio = *msg.CalibrationRatio
	}
	if err := b.registry.SetSettings(ctx, deviceID, settings); err != nil {
		return fmt.Errorf("settings for %s: %w", deviceID, err)
	}

	s.mu.Lock()
	s.state.SetCalibrationRatio(b.ratioFor(settings))
	ratio := s.state.CalibrationRatio()
	s.mu.Unlock()

	b.logger.Info("device settings updated", "device_id", deviceID, "calibration_ratio", ratio)
	return nil
}

// Remove discards the device's session and state and deletes its record.
// Removing an unknown device is not an error.
func (b *Bridge) Remove(ctx context.Context, deviceID string) error {
	b.sessMu.Lock()
	delete(b.sessions, deviceID)
	n := len(b.sessions)
	b.sessMu.Unlock()
	b.reportSessions(n)

	b.dispatcher.Forget(deviceID)

	if f, ok := b.writer.(Forgetter); ok {
		if err := f.Forget(ctx, deviceID); err != nil {
			b.logger.Warn("forgetting cached state failed", "device_id", deviceID, "error", err)
		}
	}

	if err := b.registry.DeleteDevice(ctx, deviceID); err != nil && !errors.Is(err, device.ErrDeviceNotFound) {
		return fmt.Errorf("removing %s: %w", deviceID, err)
	}

	if err := b.mqtt.PublishAsync(b.mqtt.Topics().Capabilities(deviceID), nil, b.mqtt.QoS(), true, nil); err != nil {
		b.logger.Debug("clearing capabilities topic failed", "device_id", deviceID, "error", err)
	}

	b.logger.Info("device removed", "device_id", deviceID)
	return nil
}

// Session returns a snapshot of a device's session.
func (b *Bridge) Session(deviceID string) (SessionInfo, bool) {
	b.sessMu.RLock()
	s, ok := b.sessions[deviceID]
	b.sessMu.RUnlock()
	if !ok {
		return SessionInfo{}, false
	}
	return s.info(), true
}

// SessionCount returns the number of open sessions.
func (b *Bridge) SessionCount() int {
	b.sessMu.RLock()
	defer b.sessMu.RUnlock()
	return len(b.sessions)
}

// session returns the device's session, opening one from the registry when
// the device is known but has no session yet.
func (b *Bridge) session(deviceID string) (*session, error) {
	b.sessMu.RLock()
	s, ok := b.sessions[deviceID]
	b.sessMu.RUnlock()
	if ok {
		return s, nil
	}

	d, err := b.registry.GetDevice(b.ctx, deviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
		}
		return nil, err
	}
	return b.openSession(d), nil
}

// openSession creates (or replaces) the session for d.
func (b *Bridge) openSession(d *device.Device) *session {
	p := b.resolver.Profiles().Lookup(d.Profile)
	s := newSession(d.ID, p, topology.Analyze(d.Endpoints), b.ratioFor(d.Settings))

	b.sessMu.Lock()
	b.sessions[d.ID] = s
	n := len(b.sessions)
	b.sessMu.Unlock()

	b.reportSessions(n)
	return s
}

func (b *Bridge) ratioFor(s device.Settings) float64 {
	if s.CalibrationRatio > 0 {
		return s.CalibrationRatio
	}
	return b.defaultRatio
}

// markOnline records the first traffic after a session opens. Caller holds
// s.mu.
func (b *Bridge) markOnline(ctx context.Context, s *session) {
	if s.online {
		return
	}
	if err := b.registry.SetHealth(ctx, s.deviceID, device.HealthOnline); err != nil {
		b.logger.Warn("updating device health failed", "device_id", s.deviceID, "error", err)
		return
	}
	s.online = true
}

func (b *Bridge) reportSessions(n int) {
	if b.metrics != nil {
		b.metrics.SetSessions(n)
	}
}

func (b *Bridge) announceCapabilities(d *device.Device, blocked []capability.Capability) {
	msg := CapabilitiesMessage{
		DeviceID:      d.ID,
		Class:         d.Class,
		Profile:       d.Profile,
		CanonicalType: d.CanonicalType,
		GangCount:     d.GangCount,
		Capabilities:  capability.NewSet(d.Capabilities...).Sorted(),
		Blocked:       blocked,
		Timestamp:     time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling capabilities failed", "device_id", d.ID, "error", err)
		return
	}
	topic := b.mqtt.Topics().Capabilities(d.ID)
	if err := b.mqtt.PublishAsync(topic, payload, b.mqtt.QoS(), true, nil); err != nil {
		b.logger.Warn("publishing capabilities failed", "device_id", d.ID, "error", err)
	}
}
