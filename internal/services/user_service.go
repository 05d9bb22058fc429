package services

import (
	"context"
	"errors"

	"expensepool/internal/api"
	"expensepool/internal/core"
	"expensepool/internal/log"
)

// UserRemote is the subset of the API client used for accounts.
type UserRemote interface {
	SignUp(ctx context.Context, req api.SignUpRequest) (string, error)
	SignIn(ctx context.Context, req api.SignInRequest) (api.SignInResponse, error)
}

// SessionStore persists the signed-in user.
type SessionStore interface {
	Save(ctx context.Context, token string, user core.User) error
	Clear(ctx context.Context) error
	User() (core.User, bool)
}

var ErrNotSignedIn = errors.New("not signed in")

type UserService struct {
	remote    UserRemote
	session   SessionStore
	validator *core.Validator
	logger    *log.Logger
}

func NewUserService(remote UserRemote, session SessionStore, validator *core.Validator, logger *log.Logger) *UserService {
	if logger == nil {
		logger = log.Discard()
	}
	return &UserService{
		remote:    remote,
		session:   session,
		validator: validator,
		logger:    logger.WithComponent(log.ComponentService),
	}
}

func (s *UserService) SignUp(ctx context.Context, in core.SignUpInput) Result[string] {
	in = in.Trimmed()
	if err := s.validator.Struct(in); err != nil {
		return fail[string](err)
	}
	msg, err := s.remote.SignUp(ctx, api.SignUpRequest{
		Name:     in.Name,
		Email:    in.Email,
		PhoneNo:  in.PhoneNo,
		Password: in.Password,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Sign up failed", log.FieldError, err, log.FieldErrorType, errorType(err))
		return fail[string](err)
	}
	s.logger.InfoContext(ctx, "Account created", "email", in.Email)
	return succeed(in.Email, msg)
}

// Login authenticates and persists token and user into the session.
func (s *UserService) Login(ctx context.Context, in core.LoginInput) Result[core.User] {
	in = in.Trimmed()
	if err := s.validator.Struct(in); err != nil {
		return fail[core.User](err)
	}
	resp, err := s.remote.SignIn(ctx, api.SignInRequest{Email: in.Email, Password: in.Password})
	if err != nil {
		s.logger.WarnContext(ctx, "Login failed", log.FieldError, err, log.FieldErrorType, errorType(err))
		return fail[core.User](err)
	}
	if err := s.session.Save(ctx, resp.Token, resp.User); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist session", log.FieldError, err, log.FieldErrorType, log.ErrorTypeStorage)
		return fail[core.User](err)
	}
	s.logger.InfoContext(ctx, "Logged in", log.FieldOperation, log.OpLogin, "email", resp.User.Email)
	return succeed(resp.User, "Login Successful")
}

// Logout clears the session. It succeeds even when nobody is signed in.
func (s *UserService) Logout(ctx context.Context) Result[struct{}] {
	if err := s.session.Clear(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to clear session", log.FieldError, err, log.FieldErrorType, log.ErrorTypeStorage)
		return fail[struct{}](err)
	}
	s.logger.InfoContext(ctx, "Logged out", log.FieldOperation, log.OpLogout)
	return succeed(struct{}{}, "Logged out successfully")
}

// Profile returns the cached user without a network call.
func (s *UserService) Profile(ctx context.Context) Result[core.User] {
	user, ok := s.session.User()
	if !ok {
		return fail[core.User](ErrNotSignedIn)
	}
	return succeed(user, "")
}
