// Package config loads and validates the VoiceBridge configuration.
//
// Settings come from a YAML file, then VOICEBRIDGE_* environment
// variables override individual values, which is how secrets reach the
// process: the hub token and broker passwords belong in the
// environment, not on disk. Validation runs once at startup and the
// resulting Config is read-only from then on.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//		return err
//	}
//	hub, err := homeassistant.NewClient(homeassistant.ClientOptions{
//		BaseURL: cfg.HomeAssistant.URL,
//		Token:   cfg.HomeAssistant.Token,
//	})
package config
