package viewmodel

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"expensepool/internal/core"
	"expensepool/internal/log"
	"expensepool/internal/services"
)

// ExpenseService is the facade surface used by the view-models.
type ExpenseService interface {
	CreatePool(ctx context.Context, in core.PoolInput) services.Result[core.ExpensePool]
	ListPools(ctx context.Context, fieldType string) services.Result[[]core.ExpensePool]
	CreateFixedExpense(ctx context.Context, in core.ExpenseInput) services.Result[core.FixedExpense]
	GetFixedExpenses(ctx context.Context, poolID string) services.Result[core.PoolDetail]
	AddChildExpense(ctx context.Context, poolID string, in core.ExpenseInput) services.Result[core.FixedExpense]
	UpdateChildExpense(ctx context.Context, expenseID string, in core.ExpenseInput) services.Result[core.FixedExpense]
	DeleteChildExpense(ctx context.Context, expenseID string) services.Result[string]
}

// Refresher reloads a parent view after a child mutation.
type Refresher interface {
	Load(ctx context.Context) error
}

// Screen selects which amount the balance card shows.
type Screen int

const (
	// ScreenPrimary is the fixed-expense tab; it shows the received amount.
	ScreenPrimary Screen = iota
	// ScreenPoolList is a pool opened from the pool list; it shows the balance.
	ScreenPoolList
)

type MutationKind int

const (
	MutationCreate MutationKind = iota
	MutationUpdate
	MutationDelete
)

func (k MutationKind) String() string {
	switch k {
	case MutationCreate:
		return log.OpCreate
	case MutationUpdate:
		return log.OpUpdate
	case MutationDelete:
		return log.OpDelete
	default:
		return fmt.Sprintf("mutation(%d)", int(k))
	}
}

// Mutation is a create, update or delete of one child expense.
type Mutation struct {
	Kind      MutationKind
	ExpenseID string
	Input     core.ExpenseInput
}

func Create(in core.ExpenseInput) Mutation { return Mutation{Kind: MutationCreate, Input: in} }

func Update(expenseID string, in core.ExpenseInput) Mutation {
	return Mutation{Kind: MutationUpdate, ExpenseID: expenseID, Input: in}
}

func Delete(expenseID string) Mutation { return Mutation{Kind: MutationDelete, ExpenseID: expenseID} }

type Option func(*options)

type options struct {
	screen           Screen
	parent           Refresher
	confirmer        Confirmer
	notifier         Notifier
	logger           *log.Logger
	lastResponseWins bool
}

// WithScreen sets where the list was opened from.
func WithScreen(s Screen) Option { return func(o *options) { o.screen = s } }

// WithParent refreshes parent alongside the list after every mutation.
func WithParent(r Refresher) Option { return func(o *options) { o.parent = r } }

func WithConfirmer(c Confirmer) Option { return func(o *options) { o.confirmer = c } }

func WithNotifier(n Notifier) Option { return func(o *options) { o.notifier = n } }

func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

// WithLastResponseWins applies every fetch result in arrival order, so a slow
// older fetch can overwrite a newer one. By default results of superseded
// fetches are dropped.
func WithLastResponseWins() Option { return func(o *options) { o.lastResponseWins = true } }

func buildOptions(opts []Option) options {
	o := options{notifier: nopNotifier{}, logger: log.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// loader runs the Idle/Loading/Loaded/Error cycle shared by the list
// view-models. Each fetch takes a sequence number; unless lastResponseWins is
// set, only the most recently issued fetch may publish its result.
type loader[T any] struct {
	mu        sync.Mutex
	state     ListState[T]
	seq       uint64
	closed    bool
	listeners []func(ListState[T])

	lastResponseWins bool
	logger           *log.Logger
}

// begin enters Loading and returns the fetch's sequence number.
func (l *loader[T]) begin() (uint64, bool) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0, false
	}
	l.seq++
	seq := l.seq
	l.state = Loading[T]()
	st := l.state
	listeners := l.listeners
	l.mu.Unlock()

	l.emit(listeners, st)
	return seq, true
}

// finish publishes a fetch result and reports whether it was applied.
func (l *loader[T]) finish(seq uint64, next ListState[T]) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.logger.Debug("Discarding result after close", log.FieldSeq, seq)
		return false
	}
	if !l.lastResponseWins && seq != l.seq {
		l.mu.Unlock()
		l.logger.Debug("Discarding stale result", log.FieldSeq, seq)
		return false
	}
	l.state = next
	listeners := l.listeners
	l.mu.Unlock()

	l.logger.Debug("State changed", log.FieldSeq, seq, log.FieldState, next.Phase.String())
	l.emit(listeners, next)
	return true
}

func (l *loader[T]) emit(listeners []func(ListState[T]), st ListState[T]) {
	for _, fn := range listeners {
		fn(st)
	}
}

func (l *loader[T]) State() ListState[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// OnChange registers fn to run after every state change.
func (l *loader[T]) OnChange(fn func(ListState[T])) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *loader[T]) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close stops all further state changes. In-flight results are discarded.
func (l *loader[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.listeners = nil
}

// FixedExpenseList is the view-model of one pool's expense list. It never
// patches the list locally: every successful mutation triggers a full
// re-fetch.
type FixedExpenseList struct {
	loader[core.PoolDetail]

	svc    ExpenseService
	poolID string
	opts   options
	log    *log.StructuredLogger
}

func NewFixedExpenseList(svc ExpenseService, poolID string, opts ...Option) *FixedExpenseList {
	o := buildOptions(opts)
	logger := o.logger.WithComponent(log.ComponentViewModel).With(log.FieldPoolID, poolID)
	return &FixedExpenseList{
		loader: loader[core.PoolDetail]{
			state:            Idle[core.PoolDetail](),
			lastResponseWins: o.lastResponseWins,
			logger:           logger,
		},
		svc:    svc,
		poolID: poolID,
		opts:   o,
		log:    log.NewStructuredLogger(logger),
	}
}

func (l *FixedExpenseList) PoolID() string { return l.poolID }

// Load fetches the pool and its expenses. The returned error mirrors the
// Error state; a result dropped as stale or after Close returns nil.
func (l *FixedExpenseList) Load(ctx context.Context) error {
	seq, ok := l.begin()
	if !ok {
		return ErrClosed
	}
	res := l.svc.GetFixedExpenses(ctx, l.poolID)
	if !res.Success {
		if !l.finish(seq, Failed[core.PoolDetail](core.UserMessage(res.Err, "Failed to load expenses"))) {
			return nil
		}
		return fmt.Errorf("load pool %s: %w", l.poolID, res.Err)
	}
	l.finish(seq, Loaded(res.Data))
	return nil
}

// Submit applies a mutation. On failure the state is left unchanged and an
// error notification is shown. On success both the list and the parent are
// re-fetched concurrently.
func (l *FixedExpenseList) Submit(ctx context.Context, m Mutation) error {
	if l.isClosed() {
		return ErrClosed
	}

	if m.Kind == MutationDelete {
		if l.opts.confirmer == nil || !l.opts.confirmer.Confirm(ctx, DeleteTitle, DeletePrompt) {
			return ErrDeleteCancelled
		}
	}

	var (
		ok      bool
		message string
		err     error
	)
	switch m.Kind {
	case MutationCreate:
		res := l.svc.AddChildExpense(ctx, l.poolID, m.Input)
		ok, message, err = res.Success, res.Message, res.Err
	case MutationUpdate:
		in := m.Input
		if in.FieldID == "" {
			in.FieldID = l.poolID
		}
		res := l.svc.UpdateChildExpense(ctx, m.ExpenseID, in)
		ok, message, err = res.Success, res.Message, res.Err
	case MutationDelete:
		res := l.svc.DeleteChildExpense(ctx, m.ExpenseID)
		ok, message, err = res.Success, res.Message, res.Err
	default:
		return fmt.Errorf("unknown mutation %v", m.Kind)
	}

	text := texts[m.Kind]
	if !ok {
		l.opts.notifier.Notify(Notification{Level: LevelError, Text: pick(message, text[1])})
		l.log.LogError(ctx, "Mutation failed", err, log.ComponentViewModel, m.Kind.String(),
			log.NewFields().WithPool(l.poolID, ""))
		return fmt.Errorf("%s expense: %w", m.Kind, err)
	}

	l.opts.notifier.Notify(Notification{Level: LevelSuccess, Text: pick(message, text[0])})
	l.log.LogMutation(ctx, m.Kind.String(), l.poolID, m.ExpenseID)
	return l.refresh(ctx)
}

// refresh re-fetches the list and the parent concurrently. One failing does
// not cancel the other.
func (l *FixedExpenseList) refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return l.Load(ctx) })
	if l.opts.parent != nil {
		g.Go(func() error { return l.opts.parent.Load(ctx) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh after mutation: %w", err)
	}
	return nil
}

// Balance returns the amount shown on the balance card: the pool's balance
// when opened from the pool list, otherwise the received amount. ok is false
// until the pool has loaded.
func (l *FixedExpenseList) Balance() (amount decimal.Decimal, ok bool) {
	st := l.State()
	if !st.IsLoaded() {
		return decimal.Zero, false
	}
	if l.opts.screen == ScreenPoolList {
		return st.Data.Pool.Balance, true
	}
	return st.Data.Pool.ReceivedAmount, true
}
