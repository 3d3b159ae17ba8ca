package backend

import (
	"fmt"

	"moneytracker/internal/amqp"
	"moneytracker/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:           backendType,
		SQLiteDBPath:   appConfig.SQLiteDBPath,
		MemorySeedPath: appConfig.MemorySeedPath,
		AMQP: amqp.Config{
			URL:                appConfig.AMQPURL,
			Exchange:           appConfig.AMQPExchange,
			ChangesQueue:       appConfig.AMQPChangesQueue,
			NotificationsQueue: appConfig.AMQPNotificationsQueue,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// Seed path is optional
	}

	if c.AMQP.URL != "" && (c.AMQP.Exchange == "" || c.AMQP.ChangesQueue == "" || c.AMQP.NotificationsQueue == "") {
		return fmt.Errorf("AMQP exchange and queue names are required when an AMQP URL is set")
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
