package gateway

import (
	"time"

	"tableside/internal/common/config"
)

// ConfigFromApp translates the loaded YAML sections into gateway settings.
func ConfigFromApp(a config.App) Config {
	return Config{
		ProbeTimeout:      time.Duration(a.Gateway.ProbeTimeoutSeconds) * time.Second,
		FailureThreshold:  a.Gateway.FailureThreshold,
		StreamMaxRetries:  a.Stream.MaxRetries,
		StreamBackoffBase: time.Duration(a.Stream.BackoffBaseMS) * time.Millisecond,
		StreamBackoffMax:  time.Duration(a.Stream.BackoffMaxMS) * time.Millisecond,
	}
}
