package backend

import (
	"context"
	"errors"
	"fmt"

	"expensepool/internal/amqp"
	"expensepool/internal/log"
	"expensepool/internal/session"
	"expensepool/internal/sheets"
	gsheet "expensepool/internal/sheets/google"
	"expensepool/internal/sheets/memory"
	"expensepool/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentApp)}
}

// Create implements Factory.Create. Optional parts that fail to start are
// logged and left disabled; only the session store is required.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}

	var closers []func() error
	res := &Result{}

	switch config.Session {
	case SQLiteSession:
		repo, err := storage.NewSQLiteRepository(config.SessionDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize session store: %w", err)
		}
		res.Session = repo
		closers = append(closers, repo.Close)
		f.logger.Info("Initialized SQLite session store", "db_path", config.SessionDBPath)
	case MemorySession:
		res.Session = session.NewMemoryStore()
		f.logger.Info("Initialized memory session store")
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", config.Session)
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			res.AMQP = client
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange)
		}
	}

	res.Exporter = f.createExporter(ctx, config)

	res.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return res, nil
}

func (f *DefaultFactory) createExporter(ctx context.Context, config Config) sheets.PoolExporter {
	if config.GoogleSpreadsheetID != "" {
		cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
		if err == nil {
			f.logger.Info("Initialized Google Sheets exporter", "sheet", config.GoogleSheetName)
			return cli
		}
		f.logger.Warn("Failed to initialize Google Sheets exporter, exporting to output", "error", err)
	}
	return memory.New(config.ExportOut)
}
