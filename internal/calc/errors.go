package calc

import "fmt"

// Kind classifies calculation errors.
type Kind string

const (
	KindUnsupportedType Kind = "unsupported_type"
	KindTooFewOperands  Kind = "too_few_operands"
	KindZeroDivisor     Kind = "zero_divisor"
	KindInvalidOperand  Kind = "invalid_operand"
	KindOutOfRange      Kind = "out_of_range"
)

// Error is returned for any input the calculator refuses.
type Error struct {
	Kind    Kind
	Message string
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string { return e.Message }

// Is matches on Kind so callers can test against a zero-message Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedType = &Error{Kind: KindUnsupportedType}
	ErrTooFewOperands  = &Error{Kind: KindTooFewOperands}
	ErrZeroDivisor     = &Error{Kind: KindZeroDivisor}
	ErrInvalidOperand  = &Error{Kind: KindInvalidOperand}
	ErrOutOfRange      = &Error{Kind: KindOutOfRange}
)
