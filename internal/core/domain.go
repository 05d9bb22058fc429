package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Personal FieldType = "Personal"
	Team     FieldType = "Team"
)

const (
	Food         Category = "Food"
	Travel       Category = "Travel"
	Fixed        Category = "FixedExpense"
	OtherExpense Category = "OtherExpense"
)

// DateLayout is the calendar date format used for pool expiry.
const DateLayout = "2006-01-02"

type (
	FieldType string
	Category  string

	// Date is a calendar day with no time-of-day component.
	Date struct {
		time.Time
	}

	// ExpensePool is a named bucket of received funds (a "field" on the wire).
	// Balance is computed by the server and never derived locally.
	ExpensePool struct {
		ID             string
		Name           string
		ReceivedAmount decimal.Decimal
		Balance        decimal.Decimal
		Type           FieldType
		Expiry         Date
		OwnerID        string
	}

	// FixedExpense is a dated, categorized debit recorded against a pool.
	FixedExpense struct {
		ID          string
		Description string
		Category    Category
		Date        time.Time
		Price       decimal.Decimal
		FieldID     string
	}

	// PoolDetail is a pool together with its child expenses.
	PoolDetail struct {
		Pool     ExpensePool
		Expenses []FixedExpense
	}

	// User is the cached profile of the signed-in account.
	User struct {
		ID      string `json:"_id,omitempty"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		PhoneNo string `json:"phoneNo,omitempty"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidType     = errors.New("invalid field type")
	ErrEmptyName       = errors.New("empty pool name")
)

// Categories lists the selectable expense categories in display order.
func Categories() []Category {
	return []Category{Food, Travel, Fixed, OtherExpense}
}

func (c Category) Valid() bool {
	switch c {
	case Food, Travel, Fixed, OtherExpense:
		return true
	}
	return false
}

func (t FieldType) Valid() bool {
	return t == Personal || t == Team
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// ParseDateTime accepts either an RFC 3339 timestamp or a plain calendar date,
// which is read as midnight UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if d, err := ParseDate(s); err == nil {
		return d.Time, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// After reports whether d falls on a later calendar day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

func (p ExpensePool) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ErrEmptyName
	}
	if !p.ReceivedAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if !p.Type.Valid() {
		return ErrInvalidType
	}
	if p.Expiry.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Overdrawn reports whether the server-reported balance exceeds what was received.
func (p ExpensePool) Overdrawn() bool {
	return p.Balance.GreaterThan(p.ReceivedAmount)
}

func (e FixedExpense) Validate() error {
	if len(strings.TrimSpace(e.Description)) < 3 {
		return errors.New("description too short (min 3 characters)")
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if !e.Price.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Total sums the prices of the detail's expenses.
func (d PoolDetail) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range d.Expenses {
		total = total.Add(e.Price)
	}
	return total
}
