package zigbee

import (
	"context"
	"encoding/json"
	"time"
)

// healthLoop publishes a healthy status every healthInterval until the
// bridge stops or ctx is cancelled.
func (b *Bridge) healthLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.publishHealth(HealthHealthy)
		}
	}
}

// publishHealth publishes a retained status message. Failures are logged.
func (b *Bridge) publishHealth(status HealthStatus) {
	msg := HealthMessage{
		Status:        status,
		Timestamp:     time.Now().UTC(),
		Version:       b.version,
		UptimeSeconds: int64(time.Since(b.startTime).Seconds()),
		Devices:       b.registry.GetDeviceCount(),
		Sessions:      b.SessionCount(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling health failed", "error", err)
		return
	}
	if err := b.mqtt.Publish(b.mqtt.Topics().Health(), payload, b.mqtt.QoS(), true); err != nil {
		b.logger.Warn("publishing health failed", "status", string(status), "error", err)
	}
}
