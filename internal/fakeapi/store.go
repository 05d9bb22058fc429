package fakeapi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"expensepool/internal/core"
)

var (
	ErrEmailTaken         = errors.New("User already exists")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrPoolNotFound       = errors.New("Expense field not found")
	ErrExpenseNotFound    = errors.New("Expense not found")
	ErrInsufficient       = errors.New("Insufficient balance in expense field")
	ErrPoolExpired        = errors.New("Expense field has expired")
)

// PrimaryType marks the pool that collects fixed expenses created without a
// pool id. The client lists it with the "Primary" filter.
const PrimaryType core.FieldType = "Primary"

const (
	primaryPoolName = "Fixed Expenses"
	primaryPoolDays = 365
)

type account struct {
	user         core.User
	passwordHash []byte
}

// Store holds the backend's state. Balances are kept server side: every
// expense mutation adjusts its pool's balance and is refused when the balance
// would go negative.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*account // by email
	tokens   map[string]string   // token -> user id
	pools    map[string]*core.ExpensePool
	order    []string
	expenses map[string]*core.FixedExpense

	now   func() time.Time
	newID func() string
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		pools:    make(map[string]*core.ExpensePool),
		expenses: make(map[string]*core.FixedExpense),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// SetClock replaces the clock used for expiry checks.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) today() core.Date {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.DateOf(s.now().UTC())
}

// SignUp registers an account. Passwords are kept as bcrypt hashes.
func (s *Store) SignUp(name, email, phone, password string) (core.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[email]; ok {
		return core.User{}, ErrEmailTaken
	}
	u := core.User{ID: s.newID(), Name: name, Email: email, PhoneNo: phone}
	s.accounts[email] = &account{user: u, passwordHash: hash}
	return u, nil
}

// SignIn returns a fresh bearer token.
func (s *Store) SignIn(email, password string) (string, core.User, error) {
	s.mu.RLock()
	acc, ok := s.accounts[email]
	s.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		return "", core.User{}, ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	token := s.newID()
	s.tokens[token] = acc.user.ID
	return token, acc.user, nil
}

// UserForToken resolves a bearer token to its user id.
func (s *Store) UserForToken(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	return id, ok
}

// RevokeToken invalidates a token.
func (s *Store) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// CreatePool stores a pool whose balance starts at the received amount.
func (s *Store) CreatePool(owner string, p core.ExpensePool) core.ExpensePool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.newID()
	p.OwnerID = owner
	p.Balance = p.ReceivedAmount
	s.pools[p.ID] = &p
	s.order = append(s.order, p.ID)
	return p
}

// ListPools returns the owner's pools in creation order. An empty fieldType
// lists every pool.
func (s *Store) ListPools(owner, fieldType string) []core.ExpensePool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.ExpensePool{}
	for _, id := range s.order {
		p := s.pools[id]
		if p.OwnerID != owner {
			continue
		}
		if fieldType != "" && string(p.Type) != fieldType {
			continue
		}
		out = append(out, *p)
	}
	return out
}

// Pool returns a pool and its expenses ordered by date.
func (s *Store) Pool(owner, id string) (core.PoolDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[id]
	if !ok || p.OwnerID != owner {
		return core.PoolDetail{}, ErrPoolNotFound
	}
	detail := core.PoolDetail{Pool: *p, Expenses: []core.FixedExpense{}}
	for _, e := range s.expenses {
		if e.FieldID == id {
			detail.Expenses = append(detail.Expenses, *e)
		}
	}
	sortExpenses(detail.Expenses)
	return detail, nil
}

// AddFixedExpense records a fixed expense. Without a pool id it goes to the
// owner's Primary pool, which is created on first use.
func (s *Store) AddFixedExpense(owner string, e core.FixedExpense) (core.FixedExpense, error) {
	if e.FieldID == "" {
		e.FieldID = s.primaryPool(owner)
	}
	return s.AddExpense(owner, e.FieldID, e)
}

// primaryPool returns the owner's Primary pool, creating it on first use. Its
// expiry is rolled forward whenever it has lapsed.
func (s *Store) primaryPool(owner string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := core.DateOf(s.now().UTC())
	for _, id := range s.order {
		if p := s.pools[id]; p.OwnerID == owner && p.Type == PrimaryType {
			if !p.Expiry.After(today) {
				p.Expiry = today.AddDays(primaryPoolDays)
			}
			return id
		}
	}
	p := &core.ExpensePool{
		ID:      s.newID(),
		Name:    primaryPoolName,
		Type:    PrimaryType,
		Expiry:  today.AddDays(primaryPoolDays),
		OwnerID: owner,
	}
	s.pools[p.ID] = p
	s.order = append(s.order, p.ID)
	return p.ID
}

// apply adjusts a pool by a price delta. Regular pools are debited and may
// not go below zero. The Primary pool tracks commitments: its received
// amount grows with the fixed expenses recorded against it.
func apply(p *core.ExpensePool, delta decimal.Decimal) error {
	if p.Type == PrimaryType {
		p.ReceivedAmount = p.ReceivedAmount.Add(delta)
		return nil
	}
	if p.Balance.LessThan(delta) {
		return ErrInsufficient
	}
	p.Balance = p.Balance.Sub(delta)
	return nil
}

// AddExpense records an expense against a pool.
func (s *Store) AddExpense(owner, poolID string, e core.FixedExpense) (core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[poolID]
	if !ok || p.OwnerID != owner {
		return core.FixedExpense{}, ErrPoolNotFound
	}
	if !p.Expiry.After(core.DateOf(s.now().UTC())) {
		return core.FixedExpense{}, ErrPoolExpired
	}
	if err := apply(p, e.Price); err != nil {
		return core.FixedExpense{}, err
	}
	e.ID = s.newID()
	e.FieldID = poolID
	s.expenses[e.ID] = &e
	return e, nil
}

// UpdateExpense replaces an expense and adjusts its pool by the price delta.
func (s *Store) UpdateExpense(owner, id string, e core.FixedExpense) (core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.expenses[id]
	if !ok {
		return core.FixedExpense{}, ErrExpenseNotFound
	}
	p, ok := s.pools[cur.FieldID]
	if !ok || p.OwnerID != owner {
		return core.FixedExpense{}, ErrExpenseNotFound
	}
	if err := apply(p, e.Price.Sub(cur.Price)); err != nil {
		return core.FixedExpense{}, err
	}
	e.ID = id
	e.FieldID = cur.FieldID
	*cur = e
	return e, nil
}

// DeleteExpense removes an expense and credits its pool.
func (s *Store) DeleteExpense(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.expenses[id]
	if !ok {
		return ErrExpenseNotFound
	}
	p, ok := s.pools[cur.FieldID]
	if !ok || p.OwnerID != owner {
		return ErrExpenseNotFound
	}
	// A credit never fails.
	_ = apply(p, cur.Price.Neg())
	delete(s.expenses, id)
	return nil
}
