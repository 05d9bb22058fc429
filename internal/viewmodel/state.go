package viewmodel

import "fmt"

// Phase is the tag of a ListState.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ListState is Idle, Loading, Loaded(Data) or Error(Message). Data is only
// meaningful when Phase is PhaseLoaded.
type ListState[T any] struct {
	Phase   Phase
	Data    T
	Message string
}

func Idle[T any]() ListState[T] { return ListState[T]{Phase: PhaseIdle} }

func Loading[T any]() ListState[T] { return ListState[T]{Phase: PhaseLoading} }

func Loaded[T any](data T) ListState[T] { return ListState[T]{Phase: PhaseLoaded, Data: data} }

func Failed[T any](message string) ListState[T] {
	return ListState[T]{Phase: PhaseError, Message: message}
}

func (s ListState[T]) IsLoaded() bool { return s.Phase == PhaseLoaded }
