package symerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure at the public API boundary.
type Kind uint8

const (
	// KindNotFound is for name/offset/id lookups that miss, including
	// zombie symbol ids whose target has been deleted.
	KindNotFound Kind = iota + 1
	// KindInvalidArgument is for malformed input: bad type-name syntax,
	// offsets outside function bounds, overlapping live ranges.
	KindInvalidArgument
	// KindUnsupported is for architecture or calling-convention gaps and
	// disabled demand-creation.
	KindUnsupported
	// KindUnexpected is for internal invariant violations, e.g. the symbol
	// graph pointing at a missing or wrong-kind id.
	KindUnexpected
	// KindImportFailure is for secondary-source import problems; always
	// non-fatal to the primary operation.
	KindImportFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidArgument:
		return "invalid argument"
	case KindUnsupported:
		return "unsupported"
	case KindUnexpected:
		return "unexpected"
	case KindImportFailure:
		return "import failure"
	}
	return "unknown"
}

// Error is the only error type that crosses a public operation boundary.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two taxonomy errors by kind so callers can use errors.Is
// with a bare kind sentinel.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Msg == "" && other.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	NotFound        = &Error{Kind: KindNotFound}
	InvalidArgument = &Error{Kind: KindInvalidArgument}
	Unsupported     = &Error{Kind: KindUnsupported}
	Unexpected      = &Error{Kind: KindUnexpected}
	ImportFailure   = &Error{Kind: KindImportFailure}
)

// New builds a taxonomy error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a taxonomy error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the taxonomy kind, or KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Guard converts panics from internal algorithms into Unexpected errors.
// Internal code may panic for convenience (arena overflow, impossible kind
// tags); no panic may cross a public operation boundary. Use:
//
//	func (s *Store) Op() (err error) {
//		defer symerr.Guard(&err)
//		...
//	}
func Guard(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if cause, ok := r.(error); ok {
		var already *Error
		if errors.As(cause, &already) {
			*err = already
			return
		}
		*err = Wrap(KindUnexpected, cause, "internal failure")
		return
	}
	*err = New(KindUnexpected, "internal failure: %v", r)
}
