package zigbee

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/datapoint"
	"github.com/nerrad567/gray-logic-zigbee/internal/device"
	"github.com/nerrad567/gray-logic-zigbee/internal/dispatch"
	"github.com/nerrad567/gray-logic-zigbee/internal/identity"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
	"github.com/nerrad567/gray-logic-zigbee/internal/topology"
	"github.com/nerrad567/gray-logic-zigbee/migrations"
)

const (
	meterID        = "meter-1"
	meterModel     = "TS0601"
	meterVendor    = "_TZE204_81yrt3lo"
	powerATopicCap = "measure_power.a"
)

type fakeMetrics struct {
	mu               sync.Mutex
	frames           map[string]int
	sessions         int
	interviewsFailed int
}

func (f *fakeMetrics) FrameReceived(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frames == nil {
		f.frames = make(map[string]int)
	}
	f.frames[kind]++
}

func (f *fakeMetrics) SetSessions(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = n
}

func (f *fakeMetrics) InterviewFailed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interviewsFailed++
}

type testEnv struct {
	bridge   *Bridge
	mqtt     *mockMQTT
	registry *device.Registry
	metrics  *fakeMetrics
}

func newTestRegistry(t *testing.T) *device.Registry {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "bridge.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return device.NewRegistry(device.NewSQLiteRepository(db.DB))
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	m, err := identity.NewMatcher(identity.DefaultCatalog())
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	return NewResolver(m, profile.Builtin())
}

func newTestEnv(t *testing.T, writer dispatch.Writer) *testEnv {
	t.Helper()
	env := &testEnv{
		mqtt:     newMockMQTT(),
		registry: newTestRegistry(t),
		metrics:  &fakeMetrics{},
	}
	b, err := NewBridge(Options{
		MQTT:       env.mqtt,
		Registry:   env.registry,
		Resolver:   newTestResolver(t),
		Dispatcher: dispatch.New(dispatch.Config{}),
		Mutator:    capability.NewMutator(),
		Writer:     writer,
		Metrics:    env.metrics,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	t.Cleanup(b.Stop)
	env.bridge = b
	return env
}

func (e *testEnv) send(t *testing.T, kind, deviceID string, payload any) error {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return e.bridge.HandleMessage(e.mqtt.Topics().Inbound(kind, deviceID), data)
}

func (e *testEnv) interviewMeter(t *testing.T) {
	t.Helper()
	err := e.send(t, mqtt.KindInterview, meterID, InterviewMessage{
		Model:        meterModel,
		Manufacturer: meterVendor,
		Endpoints:    []topology.Endpoint{{ID: 1, InClusters: []uint16{0x0000, 0xEF00}}},
	})
	if err != nil {
		t.Fatalf("interview error = %v", err)
	}
}

func dp(id int) *int { return &id }

func uintFrame(id int, v uint32) FrameMessage {
	b, _ := datapoint.EncodeUint(v, 4)
	return FrameMessage{DP: dp(id), Type: "value", Data: hex.EncodeToString(b)}
}

// ─── Construction ───────────────────────────────────────────────────

func TestNewBridge_RequiresCollaborators(t *testing.T) {
	full := Options{
		MQTT:       newMockMQTT(),
		Registry:   newTestRegistry(t),
		Resolver:   newTestResolver(t),
		Dispatcher: dispatch.New(dispatch.Config{}),
		Mutator:    capability.NewMutator(),
	}

	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"no mqtt", func(o *Options) { o.MQTT = nil }},
		{"no registry", func(o *Options) { o.Registry = nil }},
		{"no resolver", func(o *Options) { o.Resolver = nil }},
		{"no dispatcher", func(o *Options) { o.Dispatcher = nil }},
		{"no mutator", func(o *Options) { o.Mutator = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := full
			tt.modify(&opts)
			if _, err := NewBridge(opts); err == nil {
				t.Error("NewBridge() expected error")
			}
		})
	}

	b, err := NewBridge(full)
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	if b.defaultRatio != dispatch.DefaultCalibrationRatio {
		t.Errorf("defaultRatio = %v", b.defaultRatio)
	}
	if _, ok := b.writer.(*Sink); !ok {
		t.Errorf("default writer = %T, want *Sink", b.writer)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────

func TestBridge_StartStop(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	existing := &device.Device{ID: "plug-9", Model: "TS011F", Profile: profile.SingleChannelMeter, GangCount: 1}
	if err := env.registry.CreateDevice(ctx, existing); err != nil {
		t.Fatal(err)
	}

	if err := env.bridge.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := env.mqtt.subscriptionCount(); got != len(mqtt.InboundKinds()) {
		t.Errorf("subscriptions = %d, want %d", got, len(mqtt.InboundKinds()))
	}
	info, ok := env.bridge.Session("plug-9")
	if !ok || info.Profile != profile.SingleChannelMeter {
		t.Errorf("session for registered device = %+v, %v", info, ok)
	}

	healthTopic := env.mqtt.Topics().Health()
	var health HealthMessage
	p, _ := env.mqtt.last(healthTopic)
	if err := json.Unmarshal(p.Payload, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != HealthHealthy || health.Devices != 1 || health.Sessions != 1 || health.Version != "test" {
		t.Errorf("health = %+v", health)
	}

	env.bridge.Stop()
	env.bridge.Stop()
	if got := env.mqtt.subscriptionCount(); got != 0 {
		t.Errorf("subscriptions after Stop = %d", got)
	}
	p, _ = env.mqtt.last(healthTopic)
	if err := json.Unmarshal(p.Payload, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != HealthStopping {
		t.Errorf("final health = %s, want stopping", health.Status)
	}
	if got := env.mqtt.count(healthTopic); got != 3 {
		t.Errorf("health publishes = %d, want 3", got)
	}
}

func TestBridge_SubscribedHandlerRoutes(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.bridge.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	handler := env.mqtt.handlers[env.mqtt.Topics().AllInbound(mqtt.KindInterview)]
	if handler == nil {
		t.Fatal("no interview handler subscribed")
	}
	payload, _ := json.Marshal(InterviewMessage{Model: meterModel, Manufacturer: meterVendor})
	if err := handler(env.mqtt.Topics().Inbound(mqtt.KindInterview, meterID), payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if _, ok := env.bridge.Session(meterID); !ok {
		t.Error("interview through subscription did not open a session")
	}
}

// ─── Routing errors ─────────────────────────────────────────────────

func TestHandleMessage_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	topics := env.mqtt.Topics()

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
	}{
		{"foreign topic", "other/zigbee/datapoint/x", `{}`, ErrInvalidMessage},
		{"unknown kind", topics.Inbound("bogus", "x"), `{}`, ErrUnknownKind},
		{"bad interview json", topics.Inbound(mqtt.KindInterview, "x"), `{`, ErrInvalidMessage},
		{"bad datapoint json", topics.Inbound(mqtt.KindDatapoint, "x"), `[`, ErrInvalidMessage},
		{"bad attribute json", topics.Inbound(mqtt.KindAttribute, "x"), `1`, ErrInvalidMessage},
		{"bad settings json", topics.Inbound(mqtt.KindSettings, "x"), `"x"`, ErrInvalidMessage},
		{"datapoint for unknown device", topics.Inbound(mqtt.KindDatapoint, "ghost"), `{"frames":[{"dp":1,"type":"bool","data":"01"}]}`, ErrUnknownDevice},
		{"attribute for unknown device", topics.Inbound(mqtt.KindAttribute, "ghost"), `{"attribute":"onOff","value":true}`, ErrUnknownDevice},
		{"settings for unknown device", topics.Inbound(mqtt.KindSettings, "ghost"), `{"calibration_ratio":2}`, ErrUnknownDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.bridge.HandleMessage(tt.topic, []byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("HandleMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ─── Interview ──────────────────────────────────────────────────────

func TestInterview_DualChannelMeter(t *testing.T) {
	env := newTestEnv(t, nil)
	env.interviewMeter(t)

	d, err := env.registry.GetDevice(context.Background(), meterID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if d.Profile != profile.DualChannelMeter {
		t.Errorf("profile = %s", d.Profile)
	}
	if d.Class != capability.ClassSensor || d.CanonicalType != "energy_meter" || d.PowerSource != identity.PowerMains {
		t.Errorf("descriptor not applied: %+v", d)
	}
	for _, c := range []capability.Capability{capability.MeasurePower, capability.MeasurePower.Sub("a"), capability.MeasurePower.Sub("b")} {
		if !d.HasCapability(c) {
			t.Errorf("missing capability %s", c)
		}
	}

	p, ok := env.mqtt.last(env.mqtt.Topics().Capabilities(meterID))
	if !ok || !p.Retained {
		t.Fatal("capabilities not announced retained")
	}
	var msg CapabilitiesMessage
	if err := json.Unmarshal(p.Payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Profile != profile.DualChannelMeter || len(msg.Capabilities) != len(d.Capabilities) {
		t.Errorf("announcement = %+v", msg)
	}
	if env.metrics.sessions != 1 || env.metrics.frames[mqtt.KindInterview] != 1 {
		t.Errorf("metrics = %+v", env.metrics)
	}
}

func TestInterview_SensorNeverGetsOnOff(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.send(t, mqtt.KindInterview, "climate-1", InterviewMessage{
		Model:        "TS0201",
		Manufacturer: "_TZ3000_unknown",
		Endpoints: []topology.Endpoint{
			{ID: 1, InClusters: []uint16{0x0006}},
			{ID: 2, InClusters: []uint16{0x0006}},
		},
	})
	if err != nil {
		t.Fatalf("interview error = %v", err)
	}

	d, _ := env.registry.GetDevice(context.Background(), "climate-1")
	if d.Profile != profile.ClimateSensor {
		t.Errorf("profile = %s, want recommended %s", d.Profile, profile.ClimateSensor)
	}
	if d.HasCapability(capability.OnOff) || d.HasCapability(topology.GangCapability(2)) {
		t.Errorf("sensor received switching capabilities: %v", d.Capabilities)
	}
	if !d.HasCapability(capability.MeasureTemperature) {
		t.Error("missing measure_temperature")
	}

	p, _ := env.mqtt.last(env.mqtt.Topics().Capabilities("climate-1"))
	var msg CapabilitiesMessage
	if err := json.Unmarshal(p.Payload, &msg); err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(msg.Blocked, capability.OnOff) || !slices.Contains(msg.Blocked, topology.GangCapability(2)) {
		t.Errorf("blocked = %v", msg.Blocked)
	}
}

func TestInterview_MultiGangSwitch(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.send(t, mqtt.KindInterview, "switch-1", InterviewMessage{
		Model:        "TS0003",
		Manufacturer: "_TZ3000_abcdef",
		Endpoints: []topology.Endpoint{
			{ID: 0, InClusters: []uint16{0x0006}},
			{ID: 1, InClusters: []uint16{0x0000, 0x0006}},
			{ID: 2, InClusters: []uint16{0x0006}},
			{ID: 3, InClusters: []uint16{0x0006}},
			{ID: 242, InClusters: []uint16{0x0006}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	d, _ := env.registry.GetDevice(context.Background(), "switch-1")
	if d.GangCount != 3 || d.Class != capability.ClassLight {
		t.Errorf("gang_count = %d class = %s", d.GangCount, d.Class)
	}
	for _, c := range []capability.Capability{capability.OnOff, topology.GangCapability(2), topology.GangCapability(3)} {
		if !d.HasCapability(c) {
			t.Errorf("missing %s", c)
		}
	}
	if info, _ := env.bridge.Session("switch-1"); info.Topology.GangCount != 3 {
		t.Errorf("session topology = %+v", info.Topology)
	}
}

func TestInterview_ReinterviewKeepsCapabilities(t *testing.T) {
	env := newTestEnv(t, nil)
	env.interviewMeter(t)

	err := env.send(t, mqtt.KindInterview, meterID, InterviewMessage{Model: "TS0601", Manufacturer: "_TZE200_unknown"})
	if err != nil {
		t.Fatal(err)
	}

	d, _ := env.registry.GetDevice(context.Background(), meterID)
	if d.Profile != profile.GenericTuya {
		t.Errorf("profile = %s, want fallback", d.Profile)
	}
	if !d.HasCapability(capability.MeasurePower.Sub("a")) {
		t.Error("re-interview removed a capability")
	}
}

func TestInterview_ExplicitClass(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.send(t, mqtt.KindInterview, "plug-1", InterviewMessage{
		Model:        "TS011F",
		Manufacturer: "_TZ3000_plug",
		Class:        capability.ClassLight,
	})
	if err != nil {
		t.Fatal(err)
	}
	d, _ := env.registry.GetDevice(context.Background(), "plug-1")
	if d.Class != capability.ClassLight || d.Profile != profile.SingleChannelMeter {
		t.Errorf("class = %s profile = %s", d.Class, d.Profile)
	}
}

func TestInterview_InvalidRecord(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.send(t, mqtt.KindInterview, "bad-ieee", InterviewMessage{Model: "X", IEEEAddress: "nothex"})
	if !errors.Is(err, device.ErrInvalidDevice) {
		t.Errorf("error = %v, want ErrInvalidDevice", err)
	}
	if env.metrics.interviewsFailed != 1 {
		t.Errorf("interviewsFailed = %d", env.metrics.interviewsFailed)
	}
	if _, ok := env.bridge.Session("bad-ieee"); ok {
		t.Error("session opened for rejected device")
	}
}

// ─── Datapoints ─────────────────────────────────────────────────────

func TestDatapoints_EndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)
	env.interviewMeter(t)

	if err := env.send(t, mqtt.KindDatapoint, meterID, DatapointMessage{Frames: []FrameMessage{uintFrame(101, 1200)}}); err != nil {
		t.Fatalf("datapoint error = %v", err)
	}
	if got := stateValue(t, env.mqtt, meterID, powerATopicCap); got != 120.0 {
		t.Errorf("measure_power.a = %v, want 120", got)
	}
	if got := stateValue(t, env.mqtt, meterID, "measure_power"); got != 120.0 {
		t.Errorf("measure_power = %v, want 120", got)
	}

	if err := env.send(t, mqtt.KindDatapoint, meterID, DatapointMessage{Frames: []FrameMessage{uintFrame(105, 450)}}); err != nil {
		t.Fatalf("datapoint error = %v", err)
	}
	if got := stateValue(t, env.mqtt, meterID, "measure_power.b"); got != 45.0 {
		t.Errorf("measure_power.b = %v, want 45", got)
	}
	if got := stateValue(t, env.mqtt, meterID, "measure_power"); got != 165.0 {
		t.Errorf("measure_power = %v, want 165", got)
	}

	d, _ := env.registry.GetDevice(context.Background(), meterID)
	if d.HealthStatus != device.HealthOnline || d.LastSeen == nil {
		t.Errorf("health = %s last_seen = %v", d.HealthStatus, d.LastSeen)
	}
}

func TestDatapoints_RawReport(t *testing.T) {
	env := newTestEnv(t, nil)
	env.interviewMeter(t)

	buf := datapoint.AppendSeq(nil, 7)
	for _, f := range []struct {
		id int
		v  uint32
	}{{101, 1200}, {105, 450}} {
		payload, _ := datapoint.EncodeUint(f.v, 4)
		var err error
		buf, err = datapoint.AppendFrame(buf, datapoint.NewFrame(f.id, datapoint.TagUint, payload))
		if err != nil {
			t.Fatal(err)
		}
	}

	if err := env.send(t, mqtt.KindDatapoint, meterID, DatapointMessage{Raw: hex.EncodeToString(buf)}); err != nil {
		t.Fatalf("raw datapoint error = %v", err)
	}
	if got := stateValue(t, env.mqtt, meterID, "measure_power"); got != 165.0 {
		t.Errorf("measure_power = %v, want 165", got)
	}
}

func TestDatapoints_TruncatedRawStillDispatches(t *testing.T) {
	env := newTestEnv(t, nil)
	env.interviewMeter(t)

	payload, _ := datapoint.EncodeUint(1200, 4)
	buf, _ := datapoint.AppendFrame(datapoint.AppendSeq(nil, 1), datapoint.NewFrame(101, datapoint.TagUint, payload))
	buf = append(buf, 105, 0x02, 0x00) // cut inside the next header

	err := env.send(t, mqtt.KindDatapoint, meterID, DatapointMessage{Raw: hex.EncodeToString(buf)})
	if !errors.Is(err, datapoint.ErrTruncatedFrame) {
		t.Errorf("error = %v, want ErrTruncatedFrame", err)
	}
	if got := stateValue(t, env.mqtt, meterID, powerATopicCap); got != 120.0 {
		t.Errorf("measure_power.a = %v, want 120", got)
	}
}

func TestDatapoints_UndefinedAndUnknownAreNoOps(t *testing.T) {
	env := newTestEnv(t, nil)
	env.interviewMeter(t)
	before := len(env.mqtt.getPublished())

	msg := DatapointMessage{Frames: []FrameMessage{
		{DP: nil, Type: "value", Data: "000004b0"}, // no id
		{DP: dp(101), Type: "value", Data: ""},     // empty payload
		{DP: dp(250), Type: "value", Data: "00000001"},
	}}
	if err := env.send(t, mqtt.KindDatapoint, meterID, msg); err != nil {
		t.Fatalf("error = %v", err)
	}
	if after := len(env.mqtt.getPublished()); after != before {
		t.Errorf("published %d messages for no-op frames", after-before)
	}
}

func TestDatapoints_BadHex(t *testing.T) {
	env := newTestEnv(t, nil)
	env.interviewMeter(t)

	err := env.send(t, mqtt.KindDatapoint, meterID, DatapointMessage{Frames: []FrameMessage{{DP: dp(101), Type: "value", Data: "zz"}}})
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("error = %v, want ErrInvalidMessage", err)
	}
}

func TestDatapoints_WriteFailureDoesNotStopBatch(t *testing.T) {
	var mu sync.Mutex
	var written []capability.Capability
	writer := dispatch.WriterFunc(func(_ context.Context, _ string, c capability.Capability, _ any) error {
		mu.Lock()
		defer mu.Unlock()
		written = append(written, c)
		if c == capability.MeasurePower.Sub("a") {
			return errors.New("platform rejected")
		}
		return nil
	})
	env := newTestEnv(t, writer)
	env.interviewMeter(t)

	if err := env.send(t, mqtt.KindDatapoint, meterID, DatapointMessage{Frames: []FrameMessage{uintFrame(101, 1200)}}); err != nil {
		t.Fatalf("error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(written, []capability.Capability{capability.MeasurePower.Sub("a"), capability.MeasurePower}) {
		t.Errorf("written = %v", written)
	}
}

// ─── Attributes and settings ────────────────────────────────────────

func TestAttribute_ActivePower(t *testing.T) {
	env := newTestEnv(t, nil)
	env.interviewMeter(t)

	err := env.send(t, mqtt.KindAttribute, meterID, map[string]any{"attribute": "activePower", "value": 1234})
	if err != nil {
		t.Fatal(err)
	}
	if got := stateValue(t, env.mqtt, meterID, "measure_power"); got != 123.4 {
		t.Errorf("measure_power = %v, want 123.4", got)
	}
}

func TestSettings_CalibrationRatio(t *testing.T) {
	env := newTestEnv(t, nil)
	env.interviewMeter(t)

	if err := env.send(t, mqtt.KindSettings, meterID, map[string]any{"calibration_ratio": 2.0}); err != nil {
		t.Fatal(err)
	}
	if err := env.send(t, mqtt.KindDatapoint, meterID, DatapointMessage{Frames: []FrameMessage{uintFrame(101, 1200)}}); err != nil {
		t.Fatal(err)
	}
	if got := stateValue(t, env.mqtt, meterID, powerATopicCap); got != 240.0 {
		t.Errorf("calibrated measure_power.a = %v, want 240", got)
	}

	d, _ := env.registry.GetDevice(context.Background(), meterID)
	if d.Settings.CalibrationRatio != 2.0 {
		t.Errorf("stored ratio = %v", d.Settings.CalibrationRatio)
	}

	// Clearing the ratio restores the default.
	if err := env.send(t, mqtt.KindSettings, meterID, map[string]any{}); err != nil {
		t.Fatal(err)
	}
	if info, _ := env.bridge.Session(meterID); info.CalibrationRatio != dispatch.DefaultCalibrationRatio {
		t.Errorf("ratio after clear = %v", info.CalibrationRatio)
	}

	err := env.send(t, mqtt.KindSettings, meterID, map[string]any{"calibration_ratio": -1})
	if !errors.Is(err, device.ErrInvalidSettings) {
		t.Errorf("negative ratio error = %v", err)
	}
}

func TestSession_LoadsStoredRatio(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	d := &device.Device{ID: "plug-2", Profile: profile.SingleChannelMeter, GangCount: 1, Settings: device.Settings{CalibrationRatio: 0.5}}
	if err := env.registry.CreateDevice(ctx, d); err != nil {
		t.Fatal(err)
	}

	// No interview since start: the session is opened from the registry.
	if err := env.send(t, mqtt.KindDatapoint, "plug-2", DatapointMessage{Frames: []FrameMessage{uintFrame(19, 1000)}}); err != nil {
		t.Fatal(err)
	}
	if got := stateValue(t, env.mqtt, "plug-2", "measure_power"); got != 50.0 {
		t.Errorf("measure_power = %v, want 50", got)
	}
}

// ─── Removal ────────────────────────────────────────────────────────

type forgettingWriter struct {
	dispatch.Writer
	forgotten []string
}

func (f *forgettingWriter) Forget(_ context.Context, id string) error {
	f.forgotten = append(f.forgotten, id)
	return nil
}

func TestRemove(t *testing.T) {
	w := &forgettingWriter{Writer: dispatch.WriterFunc(func(context.Context, string, capability.Capability, any) error { return nil })}
	env := newTestEnv(t, w)
	env.interviewMeter(t)

	if err := env.send(t, mqtt.KindRemoved, meterID, struct{}{}); err != nil {
		t.Fatalf("remove error = %v", err)
	}
	if _, ok := env.bridge.Session(meterID); ok {
		t.Error("session survived removal")
	}
	if _, err := env.registry.GetDevice(context.Background(), meterID); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("GetDevice() error = %v, want not found", err)
	}
	if !slices.Equal(w.forgotten, []string{meterID}) {
		t.Errorf("forgotten = %v", w.forgotten)
	}
	p, ok := env.mqtt.last(env.mqtt.Topics().Capabilities(meterID))
	if !ok || len(p.Payload) != 0 || !p.Retained {
		t.Errorf("capabilities topic not cleared: %+v", p)
	}
	if env.metrics.sessions != 0 {
		t.Errorf("sessions gauge = %d", env.metrics.sessions)
	}

	// Removing again is harmless.
	if err := env.bridge.Remove(context.Background(), meterID); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
}

// ─── Concurrency ────────────────────────────────────────────────────

func TestDatapoints_ConcurrentDevices(t *testing.T) {
	env := newTestEnv(t, nil)
	ids := []string{"m-1", "m-2", "m-3", "m-4"}
	for _, id := range ids {
		if err := env.send(t, mqtt.KindInterview, id, InterviewMessage{Model: meterModel, Manufacturer: meterVendor}); err != nil {
			t.Fatal(err)
		}
	}

	payload, err := json.Marshal(DatapointMessage{Frames: []FrameMessage{uintFrame(101, 1200), uintFrame(105, 450)}})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topic := env.mqtt.Topics().Inbound(mqtt.KindDatapoint, id)
			for range 20 {
				if err := env.bridge.HandleMessage(topic, payload); err != nil {
					t.Errorf("%s: %v", id, err)
				}
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		if got := stateValue(t, env.mqtt, id, "measure_power"); got != 165.0 {
			t.Errorf("%s measure_power = %v, want 165", id, got)
		}
	}
}
