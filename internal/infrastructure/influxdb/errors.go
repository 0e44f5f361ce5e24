package influxdb

import "errors"

// Sentinel errors for metric storage; match with errors.Is.
var (
	// ErrNotConnected: the client has no live server connection.
	ErrNotConnected = errors.New("influxdb: no server connection")

	// ErrConnectionFailed: the initial ping during Connect failed.
	ErrConnectionFailed = errors.New("influxdb: connect failed")

	// ErrDisabled: the integration is switched off in config.yaml.
	ErrDisabled = errors.New("influxdb: sink disabled")
)
