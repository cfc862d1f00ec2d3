package kasuki

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the command runner and background jobs
// can decide what to show the user and what to log.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	// ErrKindMissing is a required option, field or lookup that was absent
	ErrKindMissing
	// ErrKindWebRequest is a transport-level failure or non-2xx response
	ErrKindWebRequest
	// ErrKindDecode is a response body that didn't parse into the expected shape
	ErrKindDecode
	// ErrKindFile is a local filesystem read/write failure
	ErrKindFile
	// ErrKindDatabase is a backend round-trip failure
	ErrKindDatabase
	// ErrKindSending is a failure to deliver a discord response
	ErrKindSending
	// ErrKindLanguage means no localized text exists for the resolved locale
	ErrKindLanguage
)

var (
	ErrMissing    = &Error{Kind: ErrKindMissing}
	ErrWebRequest = &Error{Kind: ErrKindWebRequest}
	ErrDecode     = &Error{Kind: ErrKindDecode}
	ErrFile       = &Error{Kind: ErrKindFile}
	ErrDatabase   = &Error{Kind: ErrKindDatabase}
	ErrSending    = &Error{Kind: ErrKindSending}
	ErrLanguage   = &Error{Kind: ErrKindLanguage}
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindMissing:
		return "missing"
	case ErrKindWebRequest:
		return "web_request"
	case ErrKindDecode:
		return "decode"
	case ErrKindFile:
		return "file"
	case ErrKindDatabase:
		return "database"
	case ErrKindSending:
		return "sending"
	case ErrKindLanguage:
		return "language"
	default:
		return "unknown"
	}
}

// Error is the tagged error value returned by client adapters, the store
// and command handlers.
//
// Fields:
//   - Kind: The failure category
//   - Op: The operation that failed (ex: "anilist.SearchMedia")
//   - Err: The underlying error, if any
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func missingf(op string, format string, args ...any) *Error {
	return &Error{Kind: ErrKindMissing, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, e.Err.Error())
	case e.Err != nil:
		return fmt.Sprintf("%s error: %s", e.Kind, e.Err.Error())
	case e.Op != "":
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s error", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so
// errors.Is(err, ErrWebRequest) matches any web request failure.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// errorKind returns the kind of the first *Error in err's chain,
// or ErrKindUnknown.
func errorKind(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// userMessageKey maps an error to the localization key shown to users.
// Not-found and transient failures share a message.
func userMessageKey(err error) string {
	switch errorKind(err) {
	case ErrKindMissing:
		return msgErrorMissing
	case ErrKindWebRequest, ErrKindDecode:
		return msgErrorRequest
	case ErrKindDatabase:
		return msgErrorDatabase
	default:
		return msgErrorGeneric
	}
}
