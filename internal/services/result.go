package services

import (
	"context"
	"errors"

	"expensepool/internal/core"
	"expensepool/internal/log"
)

// Result is the uniform return shape of every facade operation. Callers branch
// on Success; Err keeps the typed cause for errors.Is/As.
type Result[T any] struct {
	Success bool
	Data    T
	// Message is the server's message, or the validation summary on a
	// rejected form. It may be empty.
	Message string
	Err     error
}

func succeed[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Data: data, Message: message}
}

func fail[T any](err error) Result[T] {
	return Result[T]{Err: err, Message: core.UserMessage(err, "")}
}

// IsAuthError reports whether the result failed because the session was
// rejected.
func (r Result[T]) IsAuthError() bool {
	return errors.Is(r.Err, core.ErrUnauthorized)
}

// IsValidationError reports whether the input was rejected before any request.
func (r Result[T]) IsValidationError() bool {
	return core.IsValidation(r.Err)
}

// UnauthorizedHandler runs when a call fails with a rejected session.
type UnauthorizedHandler func(ctx context.Context)

// guard invokes onAuth for authentication failures.
type guard struct {
	onAuth UnauthorizedHandler
}

func (g *guard) check(ctx context.Context, err error) {
	if g.onAuth != nil && errors.Is(err, core.ErrUnauthorized) {
		g.onAuth(ctx)
	}
}

func errorType(err error) string {
	var re *core.RemoteError
	switch {
	case core.IsValidation(err):
		return log.ErrorTypeValidation
	case errors.Is(err, core.ErrUnauthorized):
		return log.ErrorTypeAuth
	case errors.As(err, &re) && re.Status == 0:
		return log.ErrorTypeNetwork
	default:
		return log.ErrorTypeRemote
	}
}
