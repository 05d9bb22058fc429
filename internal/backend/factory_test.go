package backend

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"expensepool/internal/config"
	"expensepool/internal/session"
	"expensepool/internal/sheets/memory"
	"expensepool/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	var out bytes.Buffer
	cfg, err := FromAppConfig(&config.Config{
		SessionBackend: "memory",
		AMQPExchange:   "expensepool",
	}, &out)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Session != MemorySession || cfg.ExportOut != &out {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if _, err := FromAppConfig(nil, nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{SessionBackend: "redis"}, nil); err == nil {
		t.Error("expected error for unknown session backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "memory", cfg: Config{Session: MemorySession}},
		{name: "sqlite", cfg: Config{Session: SQLiteSession, SessionDBPath: "x.db"}},
		{name: "sqlite without path", cfg: Config{Session: SQLiteSession}, wantErr: true},
		{name: "unknown", cfg: Config{Session: "redis"}, wantErr: true},
		{name: "amqp without queue", cfg: Config{Session: MemorySession, AMQPURL: "amqp://x", AMQPExchange: "e"}, wantErr: true},
		{name: "sheets without name", cfg: Config{Session: MemorySession, GoogleSpreadsheetID: "id"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemory(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{Session: MemorySession})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := res.Session.(*session.MemoryStore); !ok {
		t.Errorf("expected memory session store, got %T", res.Session)
	}
	if _, ok := res.Exporter.(*memory.Store); !ok {
		t.Errorf("expected memory exporter, got %T", res.Exporter)
	}
	if res.AMQP != nil {
		t.Error("AMQP should be disabled")
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup: %v", err)
	}
}

func TestCreateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")
	res, err := NewFactory(nil).Create(context.Background(), Config{Session: SQLiteSession, SessionDBPath: path})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := res.Session.(*storage.SQLiteRepository); !ok {
		t.Fatalf("expected sqlite session store, got %T", res.Session)
	}
	ctx := context.Background()
	if err := res.Session.Set(ctx, session.KeyToken, "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := res.Session.Get(ctx, session.KeyToken); err != nil || !ok || v != "abc" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup: %v", err)
	}
}

func TestCreateFallsBackWhenSheetsUnavailable(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	res, err := NewFactory(nil).Create(context.Background(), Config{
		Session:             MemorySession,
		GoogleSpreadsheetID: "sheet-1",
		GoogleSheetName:     "Pools",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := res.Exporter.(*memory.Store); !ok {
		t.Errorf("expected memory exporter fallback, got %T", res.Exporter)
	}
}
