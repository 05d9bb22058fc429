package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensepool/internal/core"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, staticToken(token), nil,
		WithRequestIDs(func() string { return "req-1" }))
}

func TestClient_SendsBearerAndRequestID(t *testing.T) {
	var gotAuth, gotID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get(headerRequestID)
		w.Write([]byte(`{"success":true,"expenseField":[]}`))
	}, "tok-123")

	_, err := c.ListPools(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "req-1", gotID)
}

func TestClient_NoAuthorizationWithoutToken(t *testing.T) {
	var hadAuth bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		w.Write([]byte(`{"success":true,"message":"Signup Successful"}`))
	}, "")

	msg, err := c.SignUp(context.Background(), SignUpRequest{Name: "Asha"})
	require.NoError(t, err)
	assert.False(t, hadAuth)
	assert.Equal(t, "Signup Successful", msg)
}

func TestClient_ListPoolsFilterAndOrder(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("fieldType")
		w.Write([]byte(`{"success":true,"expenseField":[
			{"_id":"b","fieldName":"Trip","RecivedAmount":"300","balance":120.5,"fieldType":"Team","expiry":"2026-12-01"},
			{"_id":"a","fieldName":"Groceries","RecivedAmount":500,"balance":"500","fieldType":"Personal","expiry":"2026-10-20T00:00:00.000Z"}
		]}`))
	}, "tok")

	pools, err := c.ListPools(context.Background(), "Primary")
	require.NoError(t, err)
	assert.Equal(t, "Primary", gotQuery)
	require.Len(t, pools, 2)
	assert.Equal(t, "b", pools[0].ID)
	assert.True(t, pools[0].Balance.Equal(decimal.RequireFromString("120.5")))
	assert.Equal(t, "Groceries", pools[1].Name)
	assert.True(t, pools[1].ReceivedAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "2026-10-20", pools[1].Expiry.String())
}

func TestClient_GetPoolDecodesExpenses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/field/p1", r.URL.Path)
		w.Write([]byte(`{"success":true,"field":{"_id":"p1","fieldName":"Home","RecivedAmount":"1000","balance":"900","fieldType":"Personal","expiry":"2026-11-01",
			"expenses":[{"_id":"e1","desc":"Milk","category":"Food","date":"2026-10-19T00:00:00.000Z","price":100,"fieldId":"p1"}]}}`))
	}, "tok")

	detail, err := c.GetPool(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Home", detail.Pool.Name)
	require.Len(t, detail.Expenses, 1)
	assert.Equal(t, core.Food, detail.Expenses[0].Category)
	assert.True(t, detail.Total().Equal(decimal.NewFromInt(100)))
}

func TestClient_GetPoolRequiresField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"expenseField":[]}`))
	}, "tok")

	_, err := c.GetPool(context.Background(), "p1")
	var remote *core.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, core.KindRemote, remote.Kind)
	assert.Contains(t, err.Error(), "response has no field")
}

func TestClient_GetPoolRejectsEmptyID(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true }, "tok")

	_, err := c.GetPool(context.Background(), "")
	require.Error(t, err)
	assert.False(t, called)
}

func TestClient_AddExpenseAcceptsMisspeltSuccess(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/field/add-expense/p1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"sucess":true,"message":"Expense added"}`))
	}, "tok")

	e := core.FixedExpense{
		Description: "Milk",
		Category:    core.Food,
		Date:        time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		Price:       decimal.RequireFromString("12.5"),
		FieldID:     "p1",
	}
	msg, err := c.AddExpense(context.Background(), "p1", e)
	require.NoError(t, err)
	assert.Equal(t, "Expense added", msg)
	assert.Equal(t, 12.5, body["price"])
	assert.Equal(t, "2026-10-19T00:00:00.000Z", body["date"])
	assert.Equal(t, "p1", body["fieldId"])
}

func TestClient_ErrorShapes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind core.ErrorKind
		wantMsg  string
	}{
		{"string error", http.StatusBadRequest, `{"success":false,"error":"Insufficient balance"}`, core.KindRemote, "Insufficient balance"},
		{"object error", http.StatusBadRequest, `{"success":false,"error":{"message":"Bad price"}}`, core.KindRemote, "Bad price"},
		{"unauthorized", http.StatusUnauthorized, `{"success":false,"message":"Token expired"}`, core.KindAuth, "Token expired"},
		{"forbidden without body", http.StatusForbidden, ``, core.KindAuth, "Forbidden"},
		{"success false on 200", http.StatusOK, `{"success":false,"error":"Nope"}`, core.KindRemote, "Nope"},
		{"server error", http.StatusInternalServerError, `oops`, core.KindRemote, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, "tok")

			_, err := c.DeleteExpense(context.Background(), "e1")
			require.Error(t, err)

			var re *core.RemoteError
			require.True(t, errors.As(err, &re), "error %v is not a RemoteError", err)
			assert.Equal(t, tt.wantKind, re.Kind)
			assert.Equal(t, tt.status, re.Status)
			assert.Equal(t, tt.wantMsg, re.Message)
			assert.Equal(t, tt.wantKind == core.KindAuth, IsAuth(err))
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, nil, nil)
	_, err := c.ListPools(context.Background(), "")
	require.Error(t, err)

	var re *core.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 0, re.Status)
	assert.Equal(t, core.KindRemote, re.Kind)
}

func TestClient_SignInRequiresToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}, "")

	_, err := c.SignIn(context.Background(), SignInRequest{Email: "a@b.co", Password: "password1"})
	assert.True(t, IsAuth(err))
}

func TestClient_UpdateUsesMisspeltPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/expenses/udpateExpense/e9", r.URL.Path)
		w.Write([]byte(`{"success":true,"message":"Expense updated"}`))
	}, "tok")

	msg, err := c.UpdateExpense(context.Background(), "e9", core.FixedExpense{Price: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, "Expense updated", msg)
}
