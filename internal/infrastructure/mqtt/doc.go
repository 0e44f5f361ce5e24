// Package mqtt announces configuration changes over an MQTT broker.
//
// The service is a publisher only; it never subscribes. Dashboards and
// automation engines on the same broker watch these topics to react to
// configuration churn without polling the HTTP API:
//
//	voicebridge/system/status     online/offline + LWT (retained)
//	voicebridge/event/config      configuration mutations
//	voicebridge/event/artifacts   artifact write outcomes
//	voicebridge/event/sync        HomeKit bridge push/pull outcomes
//
// The retained status document flips to offline through the broker's
// Last Will when the connection drops without a clean Close, so consumers
// can tell a crash from a shutdown by the reason field.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.PublishConfigChanged("set_mode", "")
//	client.PublishBridgeSync("push", "0b9a2c44", 3, 1, 0)
//
// Reconnects are automatic with exponential backoff, and the client
// re-publishes its online status each time a session comes back.
//
// Run production brokers with TLS (broker.tls true) and credentials;
// anonymous plaintext is for local development only. Payloads carry no
// secrets, only event metadata.
//
// The whole package is optional: when mqtt.enabled is false in config.yaml
// the service runs without a client and callers skip event publication.
package mqtt
