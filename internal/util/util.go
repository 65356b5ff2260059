package util

import (
	"github.com/delichik/pansmart2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Cloud: config.CloudConfig{
			BaseURL:      "http://localhost:18080",
			Username:     "user@example.com",
			PasswordHash: "0123456789ABCDEF0123456789ABCDEF",
			MAC:          "AA:BB:CC:DD:EE:FF",
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "pansmart",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 30000,
		},
		Port: 8080,
	}
}
