package backend

import (
	"errors"
	"fmt"
	"io"

	"expensepool/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, exportOut io.Writer) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	sessionType := SessionType(appConfig.SessionBackend)
	if !sessionType.IsValid() {
		return Config{}, fmt.Errorf("invalid session backend in config: %s", appConfig.SessionBackend)
	}

	return Config{
		Session:       sessionType,
		SessionDBPath: appConfig.SessionDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,

		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
		ExportOut:           exportOut,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Session.IsValid() {
		return fmt.Errorf("invalid session backend: %s", c.Session)
	}
	if c.Session == SQLiteSession && c.SessionDBPath == "" {
		return errors.New("session database path is required for sqlite backend")
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		return errors.New("AMQP exchange is required when AMQP is enabled")
	}
	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		return errors.New("Google Sheet name is required for sheets export")
	}
	return nil
}

// GetSessionTypes returns all valid session types
func GetSessionTypes() []SessionType {
	return []SessionType{SQLiteSession, MemorySession}
}
