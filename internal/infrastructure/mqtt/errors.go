package mqtt

import "errors"

// Sentinel errors for broker operations; match with errors.Is.
var (
	// ErrNotConnected: the session is down and the message was not sent.
	ErrNotConnected = errors.New("mqtt: no broker session")

	// ErrConnectionFailed: the initial dial never produced a session.
	ErrConnectionFailed = errors.New("mqtt: connect failed")

	// ErrPublishFailed: the broker rejected or never acknowledged a message.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidQoS: QoS above 2 requested.
	ErrInvalidQoS = errors.New("mqtt: QoS must be 0, 1, or 2")

	// ErrInvalidTopic: empty topic.
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
