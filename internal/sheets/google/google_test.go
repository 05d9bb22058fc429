package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"expensepool/internal/core"
)

// fakeSheets answers the two Values calls ExportPool makes.
type fakeSheets struct {
	mu       sync.Mutex
	usedRows int
	updates  []string
	bodies   []map[string]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		values := make([][]string, f.usedRows)
		for i := range values {
			values[i] = []string{"x"}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"majorDimension": "ROWS", "values": values})
	case http.MethodPut:
		f.updates = append(f.updates, r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		f.bodies = append(f.bodies, body)
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)
	c, err := New(context.Background(), "sheet-1", "Pools",
		goption.WithEndpoint(ts.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func detail() core.PoolDetail {
	return core.PoolDetail{
		Pool: core.ExpensePool{
			ID:             "pool-1",
			Name:           "Groceries",
			ReceivedAmount: decimal.NewFromInt(500),
			Balance:        decimal.NewFromInt(380),
			Type:           core.Personal,
			Expiry:         core.NewDate(2026, 10, 20),
		},
		Expenses: []core.FixedExpense{{Description: "Milk", Category: core.Food, Price: decimal.NewFromInt(120)}},
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "Pools")
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), "sheet-1", "Pools")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_UnreadableFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", t.TempDir()+"/missing.json")

	_, err := New(context.Background(), "sheet-1", "Pools")
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExportPool(t *testing.T) {
	tests := []struct {
		name     string
		usedRows int
		want     string
	}{
		{name: "empty sheet", usedRows: 0, want: "Pools!A1:E4"},
		{name: "leaves a blank row", usedRows: 4, want: "Pools!A6:E9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeSheets{usedRows: tt.usedRows}
			c := newTestClient(t, f)

			ref, err := c.ExportPool(context.Background(), detail())
			if err != nil {
				t.Fatalf("ExportPool: %v", err)
			}
			if ref != tt.want {
				t.Errorf("ref = %q, want %q", ref, tt.want)
			}
			if len(f.updates) != 1 {
				t.Fatalf("expected one update, got %d", len(f.updates))
			}
			values, _ := f.bodies[0]["values"].([]any)
			if len(values) != 4 {
				t.Fatalf("expected 4 rows written, got %d", len(values))
			}
			first, _ := values[0].([]any)
			if len(first) == 0 || first[0] != "Groceries" {
				t.Errorf("unexpected summary row: %v", first)
			}
		})
	}
}

func TestExportPool_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-1", sheetName: "Pools"}
	if _, err := c.ExportPool(context.Background(), detail()); err == nil {
		t.Fatal("expected error with nil service")
	}
}
