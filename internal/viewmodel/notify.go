package viewmodel

import (
	"context"
	"errors"
)

// ErrDeleteCancelled is returned when the user declines the delete prompt.
var ErrDeleteCancelled = errors.New("delete cancelled")

// ErrClosed is returned by operations on a closed view-model.
var ErrClosed = errors.New("view-model closed")

type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "success"
}

// Notification is a transient message for the user.
type Notification struct {
	Level Level
	Text  string
}

type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, title, message string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, title, message string) bool {
	return f(ctx, title, message)
}

// Confirmation prompt texts.
const (
	DeleteTitle  = "Delete Expense"
	DeletePrompt = "Are you sure you want to delete this expense?"
)

// texts holds the default success and failure messages per mutation kind.
// A server message always takes precedence.
var texts = map[MutationKind][2]string{
	MutationCreate: {"Expense added successfully", "Failed to add expense"},
	MutationUpdate: {"Expense updated successfully", "Failed to update expense"},
	MutationDelete: {"Expense deleted successfully", "Failed to delete expense"},
}

// creationTexts covers pool and fixed-expense creation.
var creationTexts = [2]string{"Expense creation Successful", "Expense creation failed"}

func pick(server, fallback string) string {
	if server != "" {
		return server
	}
	return fallback
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}
