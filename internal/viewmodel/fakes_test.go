package viewmodel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"expensepool/internal/core"
	"expensepool/internal/services"
)

var fixedNow = time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

// reply is one scripted GetFixedExpenses answer. When gate is set the call
// blocks until it is closed.
type reply struct {
	gate   chan struct{}
	result services.Result[core.PoolDetail]
}

type fakeService struct {
	mu      sync.Mutex
	calls   []string
	replies []reply
	entered chan string

	detail   core.PoolDetail
	pools    []core.ExpensePool
	mutation services.Result[string]
	created  services.Result[core.FixedExpense]
}

func newFakeService() *fakeService {
	return &fakeService{
		entered:  make(chan string, 16),
		detail:   detail("pool-1", "500", "380", expense("exp-1", "120")),
		mutation: services.Result[string]{Success: true},
		created:  services.Result[core.FixedExpense]{Success: true},
	}
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	select {
	case f.entered <- call:
	default:
	}
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeService) script(r ...reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, r...)
}

func (f *fakeService) CreatePool(_ context.Context, in core.PoolInput) services.Result[core.ExpensePool] {
	f.record("CreatePool:" + in.FieldName)
	if !f.created.Success {
		return services.Result[core.ExpensePool]{Err: f.created.Err, Message: f.created.Message}
	}
	return services.Result[core.ExpensePool]{Success: true, Message: f.created.Message}
}

func (f *fakeService) ListPools(_ context.Context, fieldType string) services.Result[[]core.ExpensePool] {
	f.record("ListPools:" + fieldType)
	f.mu.Lock()
	defer f.mu.Unlock()
	return services.Result[[]core.ExpensePool]{Success: true, Data: append([]core.ExpensePool(nil), f.pools...)}
}

func (f *fakeService) CreateFixedExpense(_ context.Context, in core.ExpenseInput) services.Result[core.FixedExpense] {
	f.record("CreateFixedExpense:" + in.Description)
	return f.created
}

func (f *fakeService) GetFixedExpenses(_ context.Context, poolID string) services.Result[core.PoolDetail] {
	f.mu.Lock()
	r := loaded(f.detail)
	if len(f.replies) > 0 {
		r = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()

	f.record("GetFixedExpenses:" + poolID)
	if r.gate != nil {
		<-r.gate
	}
	return r.result
}

func (f *fakeService) AddChildExpense(_ context.Context, poolID string, in core.ExpenseInput) services.Result[core.FixedExpense] {
	f.record("AddChildExpense:" + poolID + ":" + in.Description)
	return f.created
}

func (f *fakeService) UpdateChildExpense(_ context.Context, expenseID string, in core.ExpenseInput) services.Result[core.FixedExpense] {
	f.record("UpdateChildExpense:" + expenseID + ":" + in.FieldID)
	return f.created
}

func (f *fakeService) DeleteChildExpense(_ context.Context, expenseID string) services.Result[string] {
	f.record("DeleteChildExpense:" + expenseID)
	return f.mutation
}

func detail(poolID, received, balance string, expenses ...core.FixedExpense) core.PoolDetail {
	return core.PoolDetail{
		Pool: core.ExpensePool{
			ID:             poolID,
			Name:           "Groceries",
			ReceivedAmount: decimal.RequireFromString(received),
			Balance:        decimal.RequireFromString(balance),
			Type:           core.Personal,
			Expiry:         core.DateOf(fixedNow).AddDays(1),
		},
		Expenses: expenses,
	}
}

func expense(id, price string) core.FixedExpense {
	return core.FixedExpense{
		ID:          id,
		Description: "Milk and bread",
		Category:    core.Food,
		Date:        fixedNow,
		Price:       decimal.RequireFromString(price),
		FieldID:     "pool-1",
	}
}

func loaded(d core.PoolDetail) reply {
	return reply{result: services.Result[core.PoolDetail]{Success: true, Data: d}}
}

func failed(msg string) reply {
	err := &core.RemoteError{Kind: core.KindRemote, Status: 500, Message: msg}
	return reply{result: services.Result[core.PoolDetail]{Err: err, Message: msg}}
}

var errBoom = errors.New("boom")

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

// countingParent counts reloads.
type countingParent struct {
	mu    sync.Mutex
	loads int
	err   error
}

func (p *countingParent) Load(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	return p.err
}

func (p *countingParent) Loads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}

func always(answer bool) ConfirmFunc {
	return func(context.Context, string, string) bool { return answer }
}
