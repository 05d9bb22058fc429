package services

import (
	"context"
	"sync"

	"expensepool/internal/amqp"
	"expensepool/internal/api"
	"expensepool/internal/core"
)

// fakeRemote records calls and returns canned results.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string
	err   error

	pools  []core.ExpensePool
	detail core.PoolDetail
	sent   []core.FixedExpense
	signIn api.SignInResponse
}

func (f *fakeRemote) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) CreatePool(_ context.Context, p core.ExpensePool) (core.ExpensePool, string, error) {
	if err := f.record("CreatePool"); err != nil {
		return core.ExpensePool{}, "", err
	}
	p.ID = "pool-1"
	return p, "Pool created", nil
}

func (f *fakeRemote) ListPools(_ context.Context, fieldType string) ([]core.ExpensePool, error) {
	if err := f.record("ListPools:" + fieldType); err != nil {
		return nil, err
	}
	return f.pools, nil
}

func (f *fakeRemote) GetPool(_ context.Context, poolID string) (core.PoolDetail, error) {
	if err := f.record("GetPool:" + poolID); err != nil {
		return core.PoolDetail{}, err
	}
	return f.detail, nil
}

func (f *fakeRemote) AddFixedExpense(_ context.Context, e core.FixedExpense) (string, error) {
	f.sent = append(f.sent, e)
	return "", f.record("AddFixedExpense")
}

func (f *fakeRemote) AddExpense(_ context.Context, poolID string, e core.FixedExpense) (string, error) {
	f.sent = append(f.sent, e)
	return "Expense added", f.record("AddExpense:" + poolID)
}

func (f *fakeRemote) UpdateExpense(_ context.Context, expenseID string, e core.FixedExpense) (string, error) {
	f.sent = append(f.sent, e)
	return "", f.record("UpdateExpense:" + expenseID)
}

func (f *fakeRemote) DeleteExpense(_ context.Context, expenseID string) (string, error) {
	return "Deleted", f.record("DeleteExpense:" + expenseID)
}

func (f *fakeRemote) SignUp(_ context.Context, req api.SignUpRequest) (string, error) {
	return "Signup Successful", f.record("SignUp:" + req.Email)
}

func (f *fakeRemote) SignIn(_ context.Context, req api.SignInRequest) (api.SignInResponse, error) {
	if err := f.record("SignIn:" + req.Email); err != nil {
		return api.SignInResponse{}, err
	}
	return f.signIn, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.PoolChangeMessage
	err  error
}

func (p *fakePublisher) PublishPoolChange(_ context.Context, msg *amqp.PoolChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}
