package value

import "fmt"

// ErrorKind classifies language runtime errors.
type ErrorKind int

const (
	SyntaxError ErrorKind = iota
	TypeError
	OperationError
	PropertyError
	AssignmentError
	// Blocked marks an expression suspended on a blocking construct. It
	// propagates like an error but is never shown to the reader.
	Blocked
)

func (k ErrorKind) String() string {
	switch k {
	case SyntaxError:
		return "syntax"
	case TypeError:
		return "type"
	case OperationError:
		return "operation"
	case PropertyError:
		return "property"
	case AssignmentError:
		return "assignment"
	case Blocked:
		return "blocked"
	}
	return "unknown"
}

// Error is a language runtime error. It is a value: any operation that
// receives one returns it unchanged, so a failure deep inside an expression
// surfaces as the result of the whole expression.
type Error struct {
	Kind        ErrorKind
	Message     string
	Explanation string
}

func (*Error) TypeName() string { return "error" }

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds an error value.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Explain attaches a hint shown beneath the message.
func (e *Error) Explain(format string, args ...any) *Error {
	e.Explanation = fmt.Sprintf(format, args...)
	return e
}

// FirstError returns the first error among vs, or nil.
func FirstError(vs ...Value) *Error {
	for _, v := range vs {
		if e, ok := v.(*Error); ok {
			return e
		}
	}
	return nil
}
