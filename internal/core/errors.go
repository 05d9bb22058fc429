package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnauthorized matches any RemoteError of kind KindAuth.
var ErrUnauthorized = errors.New("unauthorized")

// ErrorKind separates rejected credentials from other remote failures.
type ErrorKind int

const (
	KindRemote ErrorKind = iota
	KindAuth
)

func (k ErrorKind) String() string {
	if k == KindAuth {
		return "auth"
	}
	return "remote"
}

// ValidationError carries field-level messages produced by the form layer
// before any request is issued.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for one field, or "".
func (e *ValidationError) Field(name string) string {
	return e.Fields[name]
}

// RemoteError is a non-2xx response or a transport failure.
type RemoteError struct {
	Kind    ErrorKind
	Status  int // 0 for transport failures
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s error (status %d)", e.Kind, e.Status)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool {
	return target == ErrUnauthorized && e.Kind == KindAuth
}

// IsValidation reports whether err carries field-level validation messages.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UserMessage returns the text shown to the user for err: the server's message
// when there is one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return fallback
}
