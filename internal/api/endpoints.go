package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"expensepool/internal/core"
)

// Endpoint paths. The udpateExpense spelling is the backend's.
const (
	PathSignUp          = "/user/signup"
	PathSignIn          = "/user/signin"
	PathCreateField     = "/field/createField"
	PathFields          = "/field/"
	PathAddFixedExpense = "/field/add-fixed-expenses"
	PathAddExpense      = "/field/add-expense/"
	PathUpdateExpense   = "/expenses/udpateExpense/"
	PathDeleteExpense   = "/expenses/deleteExpense/"
)

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (string, error) {
	var out Message
	if err := c.do(ctx, http.MethodPost, PathSignUp, req, &out); err != nil {
		return "", fmt.Errorf("sign up: %w", err)
	}
	return out.Message, nil
}

func (c *Client) SignIn(ctx context.Context, req SignInRequest) (SignInResponse, error) {
	var out SignInResponse
	if err := c.do(ctx, http.MethodPost, PathSignIn, req, &out); err != nil {
		return SignInResponse{}, fmt.Errorf("sign in: %w", err)
	}
	if out.Token == "" {
		return SignInResponse{}, &core.RemoteError{Kind: core.KindAuth, Status: http.StatusOK, Message: "no token in sign-in response"}
	}
	return out, nil
}

// CreatePool posts a validated pool. The returned pool is whatever the server
// echoes back and may be empty.
func (c *Client) CreatePool(ctx context.Context, p core.ExpensePool) (core.ExpensePool, string, error) {
	var out struct {
		Message string   `json:"message"`
		Field   *PoolDTO `json:"field"`
	}
	if err := c.do(ctx, http.MethodPost, PathCreateField, poolRequest(p), &out); err != nil {
		return core.ExpensePool{}, "", fmt.Errorf("create pool: %w", err)
	}
	if out.Field == nil {
		return core.ExpensePool{}, out.Message, nil
	}
	created, err := out.Field.Pool()
	if err != nil {
		return core.ExpensePool{}, "", fmt.Errorf("create pool: %w", err)
	}
	return created, out.Message, nil
}

// ListPools returns pools in server order. An empty filter lists all.
func (c *Client) ListPools(ctx context.Context, fieldType string) ([]core.ExpensePool, error) {
	path := PathFields
	if fieldType != "" {
		path += "?fieldType=" + url.QueryEscape(fieldType)
	}
	var out struct {
		ExpenseField []PoolDTO `json:"expenseField"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	pools := make([]core.ExpensePool, 0, len(out.ExpenseField))
	for _, dto := range out.ExpenseField {
		p, err := dto.Pool()
		if err != nil {
			return nil, fmt.Errorf("list pools: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, nil
}

// GetPool returns the pool with its child expenses.
func (c *Client) GetPool(ctx context.Context, poolID string) (core.PoolDetail, error) {
	if poolID == "" {
		return core.PoolDetail{}, errors.New("get pool: empty pool id")
	}
	var out struct {
		Field *PoolDTO `json:"field"`
	}
	if err := c.do(ctx, http.MethodGet, PathFields+url.PathEscape(poolID), nil, &out); err != nil {
		return core.PoolDetail{}, fmt.Errorf("get pool %s: %w", poolID, err)
	}
	if out.Field == nil || out.Field.ID == "" {
		return core.PoolDetail{}, &core.RemoteError{
			Kind:   core.KindRemote,
			Status: http.StatusOK,
			Err:    fmt.Errorf("decode pool %s: response has no field", poolID),
		}
	}
	detail, err := out.Field.Detail()
	if err != nil {
		return core.PoolDetail{}, fmt.Errorf("get pool %s: %w", poolID, err)
	}
	return detail, nil
}

func (c *Client) AddFixedExpense(ctx context.Context, e core.FixedExpense) (string, error) {
	var out Message
	if err := c.do(ctx, http.MethodPost, PathAddFixedExpense, expenseBody(e), &out); err != nil {
		return "", fmt.Errorf("add fixed expense: %w", err)
	}
	return out.Message, nil
}

func (c *Client) AddExpense(ctx context.Context, poolID string, e core.FixedExpense) (string, error) {
	var out Message
	if err := c.do(ctx, http.MethodPost, PathAddExpense+url.PathEscape(poolID), expenseBody(e), &out); err != nil {
		return "", fmt.Errorf("add expense to pool %s: %w", poolID, err)
	}
	return out.Message, nil
}

func (c *Client) UpdateExpense(ctx context.Context, expenseID string, e core.FixedExpense) (string, error) {
	var out Message
	if err := c.do(ctx, http.MethodPut, PathUpdateExpense+url.PathEscape(expenseID), expenseBody(e), &out); err != nil {
		return "", fmt.Errorf("update expense %s: %w", expenseID, err)
	}
	return out.Message, nil
}

func (c *Client) DeleteExpense(ctx context.Context, expenseID string) (string, error) {
	var out Message
	if err := c.do(ctx, http.MethodDelete, PathDeleteExpense+url.PathEscape(expenseID), nil, &out); err != nil {
		return "", fmt.Errorf("delete expense %s: %w", expenseID, err)
	}
	return out.Message, nil
}
