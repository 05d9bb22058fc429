package backend

import (
	"context"
	"io"

	"expensepool/internal/amqp"
	"expensepool/internal/session"
	"expensepool/internal/sheets"
)

// CleanupFunc releases resources held by a Result.
type CleanupFunc func() error

// Result holds the infrastructure the client runs on. AMQP is nil when
// change events are disabled.
type Result struct {
	Session  session.Store
	AMQP     *amqp.Client
	Exporter sheets.PoolExporter
	Cleanup  CleanupFunc
}

// Factory builds the client infrastructure from configuration.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for infrastructure creation
type Config struct {
	Session SessionType

	// SQLite specific
	SessionDBPath string

	// Change events, optional
	AMQPURL      string
	AMQPExchange string

	// Google Sheets export, optional. Without a spreadsheet id exports are
	// rendered to ExportOut.
	GoogleSpreadsheetID string
	GoogleSheetName     string
	ExportOut           io.Writer
}

// SessionType selects the session store
type SessionType string

const (
	SQLiteSession SessionType = "sqlite"
	MemorySession SessionType = "memory"
)

// String implements fmt.Stringer
func (st SessionType) String() string {
	return string(st)
}

// IsValid returns true if the session type is valid
func (st SessionType) IsValid() bool {
	switch st {
	case SQLiteSession, MemorySession:
		return true
	default:
		return false
	}
}
