package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"expensepool/internal/core"
)

// wireTimeLayout matches the ISO strings the mobile client sent.
const wireTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Wire representations. Field names follow the backend, including the
// RecivedAmount spelling.
type (
	PoolDTO struct {
		ID             string          `json:"_id,omitempty"`
		FieldName      string          `json:"fieldName"`
		ReceivedAmount decimal.Decimal `json:"RecivedAmount"`
		Balance        decimal.Decimal `json:"balance"`
		FieldType      string          `json:"fieldType"`
		Expiry         string          `json:"expiry"`
		UserID         string          `json:"userId,omitempty"`
		Expenses       []ExpenseDTO    `json:"expenses,omitempty"`
	}

	ExpenseDTO struct {
		ID       string          `json:"_id,omitempty"`
		Desc     string          `json:"desc"`
		Category string          `json:"category"`
		Date     string          `json:"date"`
		Price    decimal.Decimal `json:"price"`
		FieldID  string          `json:"fieldId,omitempty"`
	}

	createPoolRequest struct {
		FieldName      string `json:"fieldName"`
		ReceivedAmount string `json:"RecivedAmount"`
		FieldType      string `json:"fieldType"`
		Expiry         string `json:"expiry"`
	}

	expenseRequest struct {
		Desc     string  `json:"desc"`
		Price    float64 `json:"price"`
		Category string  `json:"category"`
		Date     string  `json:"date"`
		FieldID  string  `json:"fieldId,omitempty"`
	}

	SignUpRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		PhoneNo  string `json:"phoneNo"`
		Password string `json:"password"`
	}

	SignInRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	SignInResponse struct {
		Token string    `json:"token"`
		User  core.User `json:"user"`
	}
)

func poolRequest(p core.ExpensePool) createPoolRequest {
	return createPoolRequest{
		FieldName:      p.Name,
		ReceivedAmount: p.ReceivedAmount.StringFixed(2),
		FieldType:      string(p.Type),
		Expiry:         p.Expiry.String(),
	}
}

func expenseBody(e core.FixedExpense) expenseRequest {
	return expenseRequest{
		Desc:     e.Description,
		Price:    e.Price.InexactFloat64(),
		Category: string(e.Category),
		Date:     e.Date.UTC().Format(wireTimeLayout),
		FieldID:  e.FieldID,
	}
}

// Pool converts the wire form to the domain pool.
func (d PoolDTO) Pool() (core.ExpensePool, error) {
	p := core.ExpensePool{
		ID:             d.ID,
		Name:           d.FieldName,
		ReceivedAmount: d.ReceivedAmount,
		Balance:        d.Balance,
		Type:           core.FieldType(d.FieldType),
		OwnerID:        d.UserID,
	}
	if d.Expiry != "" {
		expiry, err := parseExpiry(d.Expiry)
		if err != nil {
			return core.ExpensePool{}, fmt.Errorf("decode pool %s: %w", d.ID, err)
		}
		p.Expiry = expiry
	}
	return p, nil
}

// Expense converts the wire form to the domain expense.
func (d ExpenseDTO) Expense() (core.FixedExpense, error) {
	e := core.FixedExpense{
		ID:          d.ID,
		Description: d.Desc,
		Category:    core.Category(d.Category),
		Price:       d.Price,
		FieldID:     d.FieldID,
	}
	if d.Date != "" {
		t, err := core.ParseDateTime(d.Date)
		if err != nil {
			return core.FixedExpense{}, fmt.Errorf("decode expense %s: %w", d.ID, err)
		}
		e.Date = t
	}
	return e, nil
}

// Detail converts a pool with embedded expenses.
func (d PoolDTO) Detail() (core.PoolDetail, error) {
	pool, err := d.Pool()
	if err != nil {
		return core.PoolDetail{}, err
	}
	expenses := make([]core.FixedExpense, 0, len(d.Expenses))
	for _, dto := range d.Expenses {
		e, err := dto.Expense()
		if err != nil {
			return core.PoolDetail{}, err
		}
		expenses = append(expenses, e)
	}
	return core.PoolDetail{Pool: pool, Expenses: expenses}, nil
}

// PoolDTOFrom is the inverse of Pool, used by the development backend.
func PoolDTOFrom(p core.ExpensePool) PoolDTO {
	return PoolDTO{
		ID:             p.ID,
		FieldName:      p.Name,
		ReceivedAmount: p.ReceivedAmount,
		Balance:        p.Balance,
		FieldType:      string(p.Type),
		Expiry:         p.Expiry.String(),
		UserID:         p.OwnerID,
	}
}

// ExpenseDTOFrom is the inverse of Expense.
func ExpenseDTOFrom(e core.FixedExpense) ExpenseDTO {
	return ExpenseDTO{
		ID:       e.ID,
		Desc:     e.Description,
		Category: string(e.Category),
		Date:     e.Date.UTC().Format(wireTimeLayout),
		Price:    e.Price,
		FieldID:  e.FieldID,
	}
}

// parseExpiry accepts a plain date or a full timestamp, which some backends
// return for date columns.
func parseExpiry(s string) (core.Date, error) {
	if d, err := core.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := core.ParseDateTime(s)
	if err != nil {
		return core.Date{}, err
	}
	return core.DateOf(t), nil
}
