package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/voicebridge/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the initial dial; reconnects after that
	// follow the configured backoff instead.
	connectTimeout = 10 * time.Second

	// publishTimeout bounds the wait for a broker acknowledgment.
	publishTimeout = 5 * time.Second

	// disconnectQuiesceMS gives in-flight publishes a chance to drain
	// before the socket closes. Paho takes milliseconds here.
	disconnectQuiesceMS = 1000

	// keepAliveInterval drives broker-side dead connection detection.
	keepAliveInterval = 60 * time.Second

	// qosMax is the highest QoS level MQTT defines.
	qosMax = 2
)

// clientOptions translates the mqtt section of config.yaml into paho
// options: broker URL, credentials, clean sessions, and auto-reconnect
// with exponential backoff between the configured delays.
func clientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	scheme := "tcp"
	var tlsCfg *tls.Config
	if cfg.Broker.TLS {
		scheme = "ssl"
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAliveInterval)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if tlsCfg != nil {
		opts.SetTLSConfig(tlsCfg)
	}
	return opts
}
