package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"expensepool/internal/api"
	"expensepool/internal/core"
	"expensepool/internal/log"
	"expensepool/internal/middleware/ratelimit"
	"expensepool/internal/middleware/trace"
)

type ctxKey struct{}

// Server is a development backend speaking the pool API.
type Server struct {
	http.Server
	store        *Store
	logger       *log.Logger
	trace        *trace.Middleware
	authLimit    ratelimit.Config
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAuthLimit caps sign-up and sign-in attempts per client address.
func WithAuthLimit(requests int, period time.Duration) ServerOption {
	return func(s *Server) {
		s.authLimit.Requests = requests
		s.authLimit.Period = period
	}
}

// NewServer wires the router over store.
func NewServer(addr string, store *Store, logger *log.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		store:     store,
		logger:    logger.WithComponent(log.ComponentFakeAPI),
		authLimit: ratelimit.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.trace = trace.NewMiddleware(s.logger)
	s.limiter = ratelimit.NewLimiter(s.authLimit)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Metrics reports request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.trace.GetMetrics()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.trace.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(ratelimit.ClientIP, func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Too many attempts, please try again later")
		}))
		r.Post(api.PathSignUp, s.handleSignUp)
		r.Post(api.PathSignIn, s.handleSignIn)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post(api.PathCreateField, s.handleCreatePool)
		r.Get(api.PathFields, s.handleListPools)
		r.Post(api.PathAddFixedExpense, s.handleAddFixedExpense)
		r.Post(api.PathAddExpense+"{fieldId}", s.handleAddExpense)
		r.Get(api.PathFields+"{id}", s.handleGetPool)
		r.Put(api.PathUpdateExpense+"{id}", s.handleUpdateExpense)
		r.Delete(api.PathDeleteExpense+"{id}", s.handleDeleteExpense)
	})
	return r
}

// Shutdown stops the listener; later calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutting down development backend")
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		userID, ok := s.store.UserForToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req api.SignUpRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Email and a password of at least 8 characters are required")
		return
	}
	if _, err := s.store.SignUp(req.Name, strings.ToLower(req.Email), req.PhoneNo, req.Password); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "User registered successfully"})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req api.SignInRequest
	if !decode(w, r, &req) {
		return
	}
	token, user, err := s.store.SignIn(strings.ToLower(req.Email), req.Password)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.SignInResponse{Token: token, User: user})
}

func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	var dto api.PoolDTO
	if !decode(w, r, &dto) {
		return
	}
	p, err := dto.Pool()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !p.Expiry.After(s.store.today()) {
		writeError(w, http.StatusBadRequest, "Expiry date must be in the future")
		return
	}
	created := s.store.CreatePool(userID(r), p)
	log.FromContext(r.Context()).Info("Pool created", log.FieldPoolID, created.ID, log.FieldPoolName, created.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Expense field created successfully",
		"field":   api.PoolDTOFrom(created),
	})
}

func (s *Server) handleListPools(w http.ResponseWriter, r *http.Request) {
	pools := s.store.ListPools(userID(r), r.URL.Query().Get("fieldType"))
	out := make([]api.PoolDTO, 0, len(pools))
	for _, p := range pools {
		out = append(out, api.PoolDTOFrom(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "expenseField": out})
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	detail, err := s.store.Pool(userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	dto := api.PoolDTOFrom(detail.Pool)
	dto.Expenses = make([]api.ExpenseDTO, 0, len(detail.Expenses))
	for _, e := range detail.Expenses {
		dto.Expenses = append(dto.Expenses, api.ExpenseDTOFrom(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "field": dto})
}

func (s *Server) handleAddFixedExpense(w http.ResponseWriter, r *http.Request) {
	e, ok := decodeExpense(w, r)
	if !ok {
		return
	}
	created, err := s.store.AddFixedExpense(userID(r), e)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	log.FromContext(r.Context()).Info("Fixed expense created", expenseFields(created)...)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Fixed expense created successfully"})
}

// handleAddExpense answers with the "sucess" key the production backend uses
// on this route.
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	e, ok := decodeExpense(w, r)
	if !ok {
		return
	}
	created, err := s.store.AddExpense(userID(r), chi.URLParam(r, "fieldId"), e)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"sucess": false, "message": err.Error()})
		return
	}
	log.FromContext(r.Context()).Info("Expense added", expenseFields(created)...)
	writeJSON(w, http.StatusCreated, map[string]any{"sucess": true, "message": "Expense added successfully"})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	e, ok := decodeExpense(w, r)
	if !ok {
		return
	}
	updated, err := s.store.UpdateExpense(userID(r), chi.URLParam(r, "id"), e)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	log.FromContext(r.Context()).Info("Expense updated", expenseFields(updated)...)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Expense updated successfully"})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteExpense(userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Expense deleted successfully"})
}

func expenseFields(e core.FixedExpense) []any {
	return log.NewFields().
		WithPool(e.FieldID, "").
		WithExpense(e.ID, string(e.Category), e.Price.StringFixed(2)).
		ToSlice()
}

func decodeExpense(w http.ResponseWriter, r *http.Request) (core.FixedExpense, bool) {
	var dto api.ExpenseDTO
	if !decode(w, r, &dto) {
		return core.FixedExpense{}, false
	}
	e, err := dto.Expense()
	if err == nil {
		err = e.Validate()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return core.FixedExpense{}, false
	}
	return e, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPoolNotFound), errors.Is(err, ErrExpenseNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
