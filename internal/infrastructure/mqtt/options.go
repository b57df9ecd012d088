package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout also bounds subscribe and unsubscribe acks.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is in milliseconds, as paho expects.
	defaultDisconnectQuiesce = 1000

	defaultKeepAlive = 60 * time.Second

	maxQoS = 2

	// willQoS is used for the last will so the offline status is not lost.
	willQoS = 1
)

// Status values and reasons published on the system status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	ReasonGraceful   = "graceful_shutdown"
	ReasonUnexpected = "unexpected_disconnect"
)

// StatusMessage is the retained payload on Topics.SystemStatus.
type StatusMessage struct {
	Status    string    `json:"status"`
	ClientID  string    `json:"client_id"`
	Protocol  string    `json:"protocol"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func statusPayload(clientID, status, reason string) []byte {
	// A struct of strings and a time never fails to marshal.
	data, _ := json.Marshal(StatusMessage{
		Status:    status,
		ClientID:  clientID,
		Protocol:  Protocol,
		Reason:    reason,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	})
	return data
}

// brokerURL returns tcp://host:port, or ssl:// when TLS is enabled.
func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}

// buildClientOptions maps the service config onto paho options.
//
// Ordered delivery stays on: a device's datapoint and settings messages must
// reach its session in publish order.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(defaultKeepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username).SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	applyReconnect(opts, cfg.Reconnect)

	return opts
}

// applyReconnect enables paho's retry loop. Delays are configured in
// seconds.
func applyReconnect(opts *pahomqtt.ClientOptions, r config.MQTTReconnectConfig) {
	opts.SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(r.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(r.MaxDelay) * time.Second)
}

// configureLWT registers the retained offline status the broker publishes
// when the service drops off without a clean disconnect.
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics, clientID string) {
	opts.SetBinaryWill(topics.SystemStatus(), statusPayload(clientID, StatusOffline, ReasonUnexpected), willQoS, true)
}

func buildOnlinePayload(clientID string) []byte {
	return statusPayload(clientID, StatusOnline, "")
}

func buildOfflinePayload(clientID string) []byte {
	return statusPayload(clientID, StatusOffline, ReasonGraceful)
}
