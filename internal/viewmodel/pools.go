package viewmodel

import (
	"context"
	"fmt"

	"expensepool/internal/cache"
	"expensepool/internal/core"
	"expensepool/internal/log"
)

// indexSize bounds the pool index; lists larger than this keep the most
// recently listed pools.
const indexSize = 256

// PoolList is the view-model of the pool list. Filter "Primary" gives the
// fixed-expense tab.
type PoolList struct {
	loader[[]core.ExpensePool]

	svc    ExpenseService
	filter string
	opts   options
	index  *cache.LRUCache[core.ExpensePool]
}

func NewPoolList(svc ExpenseService, filter string, opts ...Option) *PoolList {
	o := buildOptions(opts)
	logger := o.logger.WithComponent(log.ComponentViewModel)
	return &PoolList{
		loader: loader[[]core.ExpensePool]{
			state:            Idle[[]core.ExpensePool](),
			lastResponseWins: o.lastResponseWins,
			logger:           logger,
		},
		svc:    svc,
		filter: filter,
		opts:   o,
		index:  cache.NewLRUCache[core.ExpensePool](indexSize, 0),
	}
}

// Load fetches the pool list and rebuilds the index from it.
func (p *PoolList) Load(ctx context.Context) error {
	seq, ok := p.begin()
	if !ok {
		return ErrClosed
	}
	res := p.svc.ListPools(ctx, p.filter)
	if !res.Success {
		if !p.finish(seq, Failed[[]core.ExpensePool](core.UserMessage(res.Err, "Failed to load pools"))) {
			return nil
		}
		return fmt.Errorf("list pools: %w", res.Err)
	}
	if p.finish(seq, Loaded(res.Data)) {
		entries := make(map[string]core.ExpensePool, len(res.Data))
		for _, pool := range res.Data {
			entries[pool.ID] = pool
		}
		p.index.Replace(entries)
	}
	return nil
}

// Pool looks up a pool from the last applied list.
func (p *PoolList) Pool(id string) (core.ExpensePool, bool) {
	return p.index.Get(id)
}

// Empty reports whether the list loaded with no pools, which is when the
// fixed-expense tab shows its creation form.
func (p *PoolList) Empty() bool {
	st := p.State()
	return st.IsLoaded() && len(st.Data) == 0
}

// Open returns the expense list view-model for a listed pool, with this list
// as its parent.
func (p *PoolList) Open(poolID string, opts ...Option) (*FixedExpenseList, error) {
	if _, ok := p.Pool(poolID); !ok {
		return nil, fmt.Errorf("open pool %s: not in the current list", poolID)
	}
	screen := ScreenPoolList
	if p.filter == "Primary" {
		screen = ScreenPrimary
	}
	base := []Option{WithScreen(screen), WithParent(p), WithNotifier(p.opts.notifier), WithLogger(p.opts.logger)}
	if p.opts.confirmer != nil {
		base = append(base, WithConfirmer(p.opts.confirmer))
	}
	if p.opts.lastResponseWins {
		base = append(base, WithLastResponseWins())
	}
	return NewFixedExpenseList(p.svc, poolID, append(base, opts...)...), nil
}

// CreatePool creates a pool and reloads the list on success.
func (p *PoolList) CreatePool(ctx context.Context, in core.PoolInput) error {
	if p.isClosed() {
		return ErrClosed
	}
	res := p.svc.CreatePool(ctx, in)
	return p.afterCreate(ctx, res.Success, res.Message, res.Err)
}

// CreateFixedExpense creates the first fixed expense and reloads the list.
func (p *PoolList) CreateFixedExpense(ctx context.Context, in core.ExpenseInput) error {
	if p.isClosed() {
		return ErrClosed
	}
	res := p.svc.CreateFixedExpense(ctx, in)
	return p.afterCreate(ctx, res.Success, res.Message, res.Err)
}

func (p *PoolList) afterCreate(ctx context.Context, ok bool, message string, err error) error {
	if !ok {
		p.opts.notifier.Notify(Notification{Level: LevelError, Text: pick(message, creationTexts[1])})
		return fmt.Errorf("create: %w", err)
	}
	p.opts.notifier.Notify(Notification{Level: LevelSuccess, Text: pick(message, creationTexts[0])})
	return p.Load(ctx)
}
