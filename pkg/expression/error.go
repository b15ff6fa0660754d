package expression

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArguments is returned for an expression with malformed arguments.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrUnmarshal is returned for an expression that cannot be parsed.
	ErrUnmarshal = errors.New("JSON parsing error")
	// ErrEvaluation is returned when an expression fails to evaluate.
	ErrEvaluation = errors.New("evaluation error")
)

func NewInvalidArgumentsError(content string) error {
	return fmt.Errorf("%w at %q", ErrInvalidArguments, content)
}

func NewUnmarshalError(kind, content string) error {
	return fmt.Errorf("%w in %s at %q", ErrUnmarshal, kind, content)
}

func NewExpressionError(e *Expression, err error) error {
	return fmt.Errorf("%w: failed to evaluate %s expression %s: %w", ErrEvaluation, e.Op, e.String(), err)
}
