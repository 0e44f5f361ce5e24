package mqtt

import "fmt"

// payloadLimit rejects oversized payloads before they reach the broker.
// Matches the default message size cap of common broker configurations.
const payloadLimit = 1 << 20

// Publish sends one message and waits for the broker to acknowledge it,
// up to the publish timeout. Events use retained=false; only the status
// document is retained.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > qosMax {
		return ErrInvalidQoS
	}
	if len(payload) > payloadLimit {
		return fmt.Errorf("%w: payload of %d bytes exceeds the %d byte limit",
			ErrPublishFailed, len(payload), payloadLimit)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.paho.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: no acknowledgment within %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishRetained publishes at the configured QoS with the retained
// flag set, for state topics whose latest value must survive the
// publisher going away.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
