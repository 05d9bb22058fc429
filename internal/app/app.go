// Package app is the client shell: it owns the session, builds the services
// on top of it and decides which root screen is shown.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expensepool/internal/core"
	"expensepool/internal/log"
	"expensepool/internal/services"
	"expensepool/internal/session"
)

// Route is the navigation root.
type Route int

const (
	RouteLogin Route = iota
	RouteMain
)

func (r Route) String() string {
	if r == RouteMain {
		return "main"
	}
	return "login"
}

// Remote is the API surface the shell needs.
type Remote interface {
	services.ExpenseRemote
	services.UserRemote
}

type Option func(*App)

// WithPublisher announces mutations as change events.
func WithPublisher(p services.ChangePublisher) Option {
	return func(a *App) { a.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithClock sets the clock used by date validation.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

type App struct {
	session   *session.Manager
	users     *services.UserService
	expenses  *services.ExpenseService
	publisher services.ChangePublisher
	logger    *log.Logger
	now       func() time.Time

	mu        sync.Mutex
	route     Route
	listeners []func(Route)
}

// New builds the shell over an already loaded session. Any call rejected with
// an auth error logs the user out.
func New(remote Remote, sess *session.Manager, opts ...Option) *App {
	a := &App{session: sess, logger: log.Discard()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithComponent(log.ComponentApp)

	validator := core.NewValidator(a.now)
	expenseOpts := []services.ExpenseOption{services.WithUnauthorized(a.forceLogout)}
	if a.publisher != nil {
		expenseOpts = append(expenseOpts, services.WithPublisher(a.publisher))
	}
	a.users = services.NewUserService(remote, sess, validator, a.logger)
	a.expenses = services.NewExpenseService(remote, validator, a.logger, expenseOpts...)

	if sess.Authenticated() {
		a.route = RouteMain
	}
	return a
}

// Start loads the persisted session and returns the resulting root.
func Start(ctx context.Context, remote Remote, sess *session.Manager, opts ...Option) (*App, error) {
	if err := sess.Load(ctx); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return New(remote, sess, opts...), nil
}

// Root is RouteMain while a token is held.
func (a *App) Root() Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.route
}

// OnRouteChange registers fn to run whenever the root changes.
func (a *App) OnRouteChange(fn func(Route)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *App) setRoute(r Route) {
	a.mu.Lock()
	if a.route == r {
		a.mu.Unlock()
		return
	}
	a.route = r
	listeners := a.listeners
	a.mu.Unlock()

	a.logger.Debug("Route changed", "route", r.String())
	for _, fn := range listeners {
		fn(r)
	}
}

// Expenses is the expense facade bound to this session.
func (a *App) Expenses() *services.ExpenseService { return a.expenses }

func (a *App) SignUp(ctx context.Context, in core.SignUpInput) services.Result[string] {
	return a.users.SignUp(ctx, in)
}

// Login switches the root to main on success.
func (a *App) Login(ctx context.Context, in core.LoginInput) services.Result[core.User] {
	res := a.users.Login(ctx, in)
	if res.Success {
		a.setRoute(RouteMain)
	}
	return res
}

// Logout clears token and user and switches the root to login.
func (a *App) Logout(ctx context.Context) services.Result[struct{}] {
	res := a.users.Logout(ctx)
	if res.Success {
		a.setRoute(RouteLogin)
	}
	return res
}

func (a *App) Profile(ctx context.Context) services.Result[core.User] {
	return a.users.Profile(ctx)
}

func (a *App) forceLogout(ctx context.Context) {
	a.logger.WarnContext(ctx, "Session rejected by server, logging out")
	a.Logout(ctx)
}
