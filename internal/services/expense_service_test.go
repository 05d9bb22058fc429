package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"expensepool/internal/core"
)

var fixedNow = time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

func newTestService(remote *fakeRemote, opts ...ExpenseOption) *ExpenseService {
	return NewExpenseService(remote, core.NewValidator(func() time.Time { return fixedNow }), nil, opts...)
}

func validExpense() core.ExpenseInput {
	return core.ExpenseInput{
		Description: "Milk",
		Price:       "42.50",
		Category:    "Food",
		Date:        "2026-10-19T00:00:00.000Z",
	}
}

func TestCreatePool_ValidationFailsWithoutRequest(t *testing.T) {
	tests := []struct {
		name  string
		input core.PoolInput
		field string
	}{
		{
			name:  "name too short",
			input: core.PoolInput{FieldName: "ab", ReceivedAmount: "500.00", FieldType: "Personal", Expiry: "2026-10-20"},
			field: "fieldName",
		},
		{
			name:  "name too long",
			input: core.PoolInput{FieldName: strings.Repeat("a", 51), ReceivedAmount: "500.00", FieldType: "Personal", Expiry: "2026-10-20"},
			field: "fieldName",
		},
		{
			name:  "expiry today",
			input: core.PoolInput{FieldName: "Groceries", ReceivedAmount: "500.00", FieldType: "Personal", Expiry: "2026-10-19"},
			field: "expiry",
		},
		{
			name:  "three decimals",
			input: core.PoolInput{FieldName: "Groceries", ReceivedAmount: "500.001", FieldType: "Personal", Expiry: "2026-10-20"},
			field: "RecivedAmount",
		},
		{
			name:  "zero amount",
			input: core.PoolInput{FieldName: "Groceries", ReceivedAmount: "0", FieldType: "Personal", Expiry: "2026-10-20"},
			field: "RecivedAmount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &fakeRemote{}
			res := newTestService(remote).CreatePool(context.Background(), tt.input)

			if res.Success {
				t.Fatal("expected failure")
			}
			if !res.IsValidationError() {
				t.Fatalf("Err = %v, want validation error", res.Err)
			}
			var ve *core.ValidationError
			errors.As(res.Err, &ve)
			if ve.Field(tt.field) == "" {
				t.Errorf("no message for %s in %v", tt.field, ve.Fields)
			}
			if calls := remote.Calls(); len(calls) != 0 {
				t.Errorf("remote called: %v", calls)
			}
		})
	}
}

func TestCreatePool_PublishesChange(t *testing.T) {
	remote := &fakeRemote{}
	pub := &fakePublisher{}
	res := newTestService(remote, WithPublisher(pub)).CreatePool(context.Background(), core.PoolInput{
		FieldName: "Groceries", ReceivedAmount: "500.00", FieldType: "Personal", Expiry: "2026-10-20",
	})

	if !res.Success {
		t.Fatalf("CreatePool failed: %v", res.Err)
	}
	if res.Data.ID != "pool-1" || res.Message != "Pool created" {
		t.Errorf("Data = %+v, Message = %q", res.Data, res.Message)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].PoolID != "pool-1" {
		t.Errorf("published %+v", pub.msgs)
	}
}

func TestAddChildExpense_SetsFieldID(t *testing.T) {
	remote := &fakeRemote{}
	res := newTestService(remote).AddChildExpense(context.Background(), "p1", validExpense())

	if !res.Success {
		t.Fatalf("AddChildExpense failed: %v", res.Err)
	}
	if got := remote.Calls(); len(got) != 1 || got[0] != "AddExpense:p1" {
		t.Errorf("calls = %v", got)
	}
	if remote.sent[0].FieldID != "p1" {
		t.Errorf("sent FieldID = %q, want p1", remote.sent[0].FieldID)
	}
	if res.Message != "Expense added" {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestUpdateChildExpense_InvalidInput(t *testing.T) {
	remote := &fakeRemote{}
	in := validExpense()
	in.Description = "ab"
	in.Price = "-3"

	res := newTestService(remote).UpdateChildExpense(context.Background(), "e1", in)

	if res.Success || !res.IsValidationError() {
		t.Fatalf("expected validation failure, got %+v", res)
	}
	if len(remote.Calls()) != 0 {
		t.Errorf("remote called: %v", remote.Calls())
	}
}

func TestDeleteChildExpense(t *testing.T) {
	remote := &fakeRemote{}
	pub := &fakePublisher{}
	res := newTestService(remote, WithPublisher(pub)).DeleteChildExpense(context.Background(), "e1")

	if !res.Success || res.Data != "e1" {
		t.Fatalf("DeleteChildExpense = %+v", res)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].ExpenseID != "e1" {
		t.Errorf("published %+v", pub.msgs)
	}

	res = newTestService(remote).DeleteChildExpense(context.Background(), "")
	if res.Success || !res.IsValidationError() {
		t.Errorf("empty id should be a validation failure, got %+v", res)
	}
}

func TestEmptyIDsFailWithoutRequest(t *testing.T) {
	tests := []struct {
		name  string
		call  func(*ExpenseService) (bool, bool)
		field string
	}{
		{
			name: "get expenses",
			call: func(s *ExpenseService) (bool, bool) {
				res := s.GetFixedExpenses(context.Background(), "")
				return res.Success, res.IsValidationError()
			},
		},
		{
			name: "add child expense",
			call: func(s *ExpenseService) (bool, bool) {
				res := s.AddChildExpense(context.Background(), "", validExpense())
				return res.Success, res.IsValidationError()
			},
		},
		{
			name: "update child expense",
			call: func(s *ExpenseService) (bool, bool) {
				res := s.UpdateChildExpense(context.Background(), "", validExpense())
				return res.Success, res.IsValidationError()
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &fakeRemote{}
			ok, invalid := tt.call(newTestService(remote))
			if ok || !invalid {
				t.Errorf("success=%v validation=%v, want a validation failure", ok, invalid)
			}
			if len(remote.Calls()) != 0 {
				t.Errorf("remote called: %v", remote.Calls())
			}
		})
	}
}

func TestRemoteFailure_MessageAndUnauthorizedHook(t *testing.T) {
	authErr := &core.RemoteError{Kind: core.KindAuth, Status: 401, Message: "Token expired"}
	remote := &fakeRemote{err: authErr}

	var hookCalls int
	svc := newTestService(remote, WithUnauthorized(func(context.Context) { hookCalls++ }))

	res := svc.ListPools(context.Background(), "")
	if res.Success {
		t.Fatal("expected failure")
	}
	if !res.IsAuthError() {
		t.Errorf("IsAuthError() = false for %v", res.Err)
	}
	if res.Message != "Token expired" {
		t.Errorf("Message = %q, want server message", res.Message)
	}
	if hookCalls != 1 {
		t.Errorf("unauthorized hook called %d times, want 1", hookCalls)
	}

	remote.err = &core.RemoteError{Kind: core.KindRemote, Status: 500}
	svc.GetFixedExpenses(context.Background(), "p1")
	if hookCalls != 1 {
		t.Errorf("hook ran for a non-auth error")
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	remote := &fakeRemote{}
	pub := &fakePublisher{err: errors.New("broker down")}

	res := newTestService(remote, WithPublisher(pub)).CreateFixedExpense(context.Background(), validExpense())
	if !res.Success {
		t.Fatalf("CreateFixedExpense failed: %v", res.Err)
	}
}
