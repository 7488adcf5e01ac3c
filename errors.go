package conduit

import "fmt"

// Kind is the closed error taxonomy: each fallible Conduit operation
// fails with exactly one of these.
type Kind int

const (
	InvalidArgument Kind = iota
	TypeMismatch
	LayoutError
	SchemaError
	PathError
	IoError
	ParseError
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case TypeMismatch:
		return "TypeMismatch"
	case LayoutError:
		return "LayoutError"
	case SchemaError:
		return "SchemaError"
	case PathError:
		return "PathError"
	case IoError:
		return "IoError"
	case ParseError:
		return "ParseError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the concrete error type every fallible Conduit operation
// returns. Path is set whenever the failure is meaningful relative to a
// tree location; Cause wraps an underlying error for IoError and
// ParseError, which preserve opaque OS/tokenizer detail verbatim.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Cause   error

	// sentinelKind marks the package-level Err* values below: errors.Is
	// against one of them matches any *Error of the same Kind, regardless
	// of Path/Message/Cause.
	sentinelKind bool
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Cause != nil {
			return fmt.Sprintf("conduit: %s at %q: %s: %v", e.Kind, e.Path, e.Message, e.Cause)
		}
		return fmt.Sprintf("conduit: %s at %q: %s", e.Kind, e.Path, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("conduit: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("conduit: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches e against the sentinel Kind errors below, so callers can use
// errors.Is(err, conduit.ErrLayoutError) without reaching into Kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	if !ok {
		return false
	}
	return sentinel.sentinelKind && e.Kind == sentinel.Kind
}

// NewError builds a concrete *Error for a failing operation.
func NewError(kind Kind, path, message string) *Error {
	return &Error{Kind: kind, Path: path, Message: message}
}

// NewErrorf is NewError with fmt.Sprintf-style formatting.
func NewErrorf(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a concrete *Error wrapping cause (for IoError/ParseError).
func WrapError(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Message: cause.Error(), Cause: cause}
}

var (
	ErrInvalidArgument = &Error{Kind: InvalidArgument, sentinelKind: true}
	ErrTypeMismatch    = &Error{Kind: TypeMismatch, sentinelKind: true}
	ErrLayoutError     = &Error{Kind: LayoutError, sentinelKind: true}
	ErrSchemaError     = &Error{Kind: SchemaError, sentinelKind: true}
	ErrPathError       = &Error{Kind: PathError, sentinelKind: true}
	ErrIoError         = &Error{Kind: IoError, sentinelKind: true}
	ErrParseError      = &Error{Kind: ParseError, sentinelKind: true}
)
