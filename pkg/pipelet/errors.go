package pipelet

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedAction is returned by Notify when a transaction contains an action the
	// pipelet does not support. No action of the transaction is applied.
	ErrUnsupportedAction = errors.New("unsupported action")
	// ErrInvalidWiring is returned for a duplicate destination or source, or for removing one
	// that is not registered.
	ErrInvalidWiring = errors.New("invalid wiring")
	// ErrPredicate is returned when a filter predicate fails to evaluate.
	ErrPredicate = errors.New("predicate error")
)

func NewUnsupportedActionError(node string, kind ActionKind) error {
	return fmt.Errorf("%w: pipelet %q does not support action %q", ErrUnsupportedAction, node, kind)
}

func NewInvalidWiringError(node, content string) error {
	return fmt.Errorf("%w at pipelet %q: %s", ErrInvalidWiring, node, content)
}

func NewPredicateError(node string, err error) error {
	return fmt.Errorf("%w at filter %q: %w", ErrPredicate, node, err)
}
