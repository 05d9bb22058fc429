package services

import (
	"context"
	"fmt"

	"expensepool/internal/amqp"
	"expensepool/internal/core"
	"expensepool/internal/log"
)

// ExpenseRemote is the subset of the API client used for pools and expenses.
type ExpenseRemote interface {
	CreatePool(ctx context.Context, p core.ExpensePool) (core.ExpensePool, string, error)
	ListPools(ctx context.Context, fieldType string) ([]core.ExpensePool, error)
	GetPool(ctx context.Context, poolID string) (core.PoolDetail, error)
	AddFixedExpense(ctx context.Context, e core.FixedExpense) (string, error)
	AddExpense(ctx context.Context, poolID string, e core.FixedExpense) (string, error)
	UpdateExpense(ctx context.Context, expenseID string, e core.FixedExpense) (string, error)
	DeleteExpense(ctx context.Context, expenseID string) (string, error)
}

// ChangePublisher announces successful mutations to other clients.
type ChangePublisher interface {
	PublishPoolChange(ctx context.Context, msg *amqp.PoolChangeMessage) error
}

// ExpenseService validates input, calls the remote API and publishes change
// events. It never caches and never retries.
type ExpenseService struct {
	remote    ExpenseRemote
	validator *core.Validator
	publisher ChangePublisher
	logger    *log.StructuredLogger
	guard
}

type ExpenseOption func(*ExpenseService)

// WithPublisher enables change events after successful mutations.
func WithPublisher(p ChangePublisher) ExpenseOption {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithUnauthorized registers the handler run on rejected sessions.
func WithUnauthorized(h UnauthorizedHandler) ExpenseOption {
	return func(s *ExpenseService) { s.onAuth = h }
}

func NewExpenseService(remote ExpenseRemote, validator *core.Validator, logger *log.Logger, opts ...ExpenseOption) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	s := &ExpenseService{
		remote:    remote,
		validator: validator,
		logger:    log.NewStructuredLogger(logger.WithComponent(log.ComponentService)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExpenseService) CreatePool(ctx context.Context, in core.PoolInput) Result[core.ExpensePool] {
	pool, err := s.validator.Pool(in)
	if err != nil {
		return fail[core.ExpensePool](err)
	}
	created, msg, err := s.remote.CreatePool(ctx, pool)
	if err != nil {
		s.reportFailure(ctx, err, log.OpCreate, "", "")
		return fail[core.ExpensePool](err)
	}
	if created.ID == "" {
		created = pool
	}
	s.logger.LogMutation(ctx, log.OpCreate, created.ID, "")
	s.publish(ctx, amqp.NewPoolChangeMessage(created.ID, "", amqp.OpPoolCreated))
	return succeed(created, msg)
}

// ListPools lists pools in server order. fieldType may be empty.
func (s *ExpenseService) ListPools(ctx context.Context, fieldType string) Result[[]core.ExpensePool] {
	pools, err := s.remote.ListPools(ctx, fieldType)
	if err != nil {
		s.reportFailure(ctx, err, log.OpList, "", "")
		return fail[[]core.ExpensePool](err)
	}
	return succeed(pools, "")
}

func (s *ExpenseService) CreateFixedExpense(ctx context.Context, in core.ExpenseInput) Result[core.FixedExpense] {
	e, err := s.validator.Expense(in)
	if err != nil {
		return fail[core.FixedExpense](err)
	}
	msg, err := s.remote.AddFixedExpense(ctx, e)
	if err != nil {
		s.reportFailure(ctx, err, log.OpCreate, e.FieldID, "")
		return fail[core.FixedExpense](err)
	}
	s.logger.LogMutation(ctx, log.OpCreate, e.FieldID, "")
	s.publish(ctx, amqp.NewPoolChangeMessage(e.FieldID, "", amqp.OpFixedCreated))
	return succeed(e, msg)
}

// GetFixedExpenses returns the pool with its current expense list.
func (s *ExpenseService) GetFixedExpenses(ctx context.Context, poolID string) Result[core.PoolDetail] {
	if poolID == "" {
		return fail[core.PoolDetail](missingID("fieldId", "Expense field id is required"))
	}
	detail, err := s.remote.GetPool(ctx, poolID)
	if err != nil {
		s.reportFailure(ctx, err, log.OpRead, poolID, "")
		return fail[core.PoolDetail](err)
	}
	return succeed(detail, "")
}

func (s *ExpenseService) AddChildExpense(ctx context.Context, poolID string, in core.ExpenseInput) Result[core.FixedExpense] {
	if poolID == "" {
		return fail[core.FixedExpense](missingID("fieldId", "Expense field id is required"))
	}
	in.FieldID = poolID
	e, err := s.validator.Expense(in)
	if err != nil {
		return fail[core.FixedExpense](err)
	}
	msg, err := s.remote.AddExpense(ctx, poolID, e)
	if err != nil {
		s.reportFailure(ctx, err, log.OpCreate, poolID, "")
		return fail[core.FixedExpense](err)
	}
	s.logger.LogMutation(ctx, log.OpCreate, poolID, "")
	s.publish(ctx, amqp.NewPoolChangeMessage(poolID, "", amqp.OpExpenseAdded))
	return succeed(e, msg)
}

func (s *ExpenseService) UpdateChildExpense(ctx context.Context, expenseID string, in core.ExpenseInput) Result[core.FixedExpense] {
	if expenseID == "" {
		return fail[core.FixedExpense](missingID("_id", "Expense id is required"))
	}
	e, err := s.validator.Expense(in)
	if err != nil {
		return fail[core.FixedExpense](err)
	}
	e.ID = expenseID
	msg, err := s.remote.UpdateExpense(ctx, expenseID, e)
	if err != nil {
		s.reportFailure(ctx, err, log.OpUpdate, e.FieldID, expenseID)
		return fail[core.FixedExpense](err)
	}
	s.logger.LogMutation(ctx, log.OpUpdate, e.FieldID, expenseID)
	s.publish(ctx, amqp.NewPoolChangeMessage(e.FieldID, expenseID, amqp.OpExpenseUpdated))
	return succeed(e, msg)
}

// DeleteChildExpense deletes one expense. Data is the deleted id.
func (s *ExpenseService) DeleteChildExpense(ctx context.Context, expenseID string) Result[string] {
	if expenseID == "" {
		return fail[string](missingID("_id", "Expense id is required"))
	}
	msg, err := s.remote.DeleteExpense(ctx, expenseID)
	if err != nil {
		s.reportFailure(ctx, err, log.OpDelete, "", expenseID)
		return fail[string](err)
	}
	s.logger.LogMutation(ctx, log.OpDelete, "", expenseID)
	s.publish(ctx, amqp.NewPoolChangeMessage("", expenseID, amqp.OpExpenseDeleted))
	return succeed(expenseID, msg)
}

// missingID reports an empty path id before any request is built.
func missingID(field, msg string) error {
	return &core.ValidationError{Fields: map[string]string{field: msg}}
}

// publish is best effort; the mutation already succeeded remotely.
func (s *ExpenseService) publish(ctx context.Context, msg *amqp.PoolChangeMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPoolChange(ctx, msg); err != nil {
		s.logger.LogError(ctx, "Failed to publish pool change", fmt.Errorf("publish %s: %w", msg.Operation, err),
			log.ComponentService, msg.Operation, log.NewFields().WithPool(msg.PoolID, ""))
	}
}

// reportFailure logs a failed remote call and runs the unauthorized handler
// when the session was rejected.
func (s *ExpenseService) reportFailure(ctx context.Context, err error, op, poolID, expenseID string) {
	fields := log.NewFields().WithPool(poolID, "").WithErrorType(errorType(err))
	if expenseID != "" {
		fields[log.FieldExpenseID] = expenseID
	}
	s.logger.LogError(ctx, "Expense call failed", err, log.ComponentService, op, fields)
	s.check(ctx, err)
}
