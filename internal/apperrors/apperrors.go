// internal/apperrors/apperrors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an operational failure so transport layers can map
// it to a response code without inspecting message text.
type Kind int

const (
	// KindInvalidArgument rejects non-positive day counts, negative
	// remaining days, zero/negative story points and the like.
	KindInvalidArgument Kind = iota + 1
	// KindNotFound reports an unknown sprint/story/task in a direct
	// operation. Unresolvable refs inside activity events are NOT
	// errors and never carry this kind.
	KindNotFound
	// KindMalformedPayload reports an activity event missing required
	// structural fields.
	KindMalformedPayload
	// KindConflict reports a write that raced outside the sprint
	// serialization discipline; callers retry rather than overwrite.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindMalformedPayload:
		return "malformed_payload"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is the taxonomy-carrying error type for this service.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidArgumentf builds a KindInvalidArgument error.
func InvalidArgumentf(format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// MalformedPayloadf builds a KindMalformedPayload error.
func MalformedPayloadf(format string, args ...any) error {
	return &Error{Kind: KindMalformedPayload, Msg: fmt.Sprintf(format, args...)}
}

// Conflictf builds a KindConflict error wrapping the racing write's cause.
func Conflictf(err error, format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the taxonomy kind from err, or 0 if err is not ours.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsInvalidArgument reports whether err carries KindInvalidArgument.
func IsInvalidArgument(err error) bool { return KindOf(err) == KindInvalidArgument }

// IsNotFound reports whether err carries KindNotFound.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsMalformedPayload reports whether err carries KindMalformedPayload.
func IsMalformedPayload(err error) bool { return KindOf(err) == KindMalformedPayload }

// IsConflict reports whether err carries KindConflict.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// ErrInvalidRepoFormat is returned when a repository string in the
// config is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}
