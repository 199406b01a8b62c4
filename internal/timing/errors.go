package timing

import "fmt"

// Code is a machine-readable error code.
type Code string

const (
	CodeBusy                 Code = "BUSY"
	CodeAlreadyRecording     Code = "ALREADY_RECORDING"
	CodeEmptySequence        Code = "EMPTY_SEQUENCE"
	CodeSaveFailed           Code = "SAVE_FAILED"
	CodeInvalidState         Code = "INVALID_STATE"
	CodeNotActive            Code = "NOT_ACTIVE"
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodeAlreadySubscribed    Code = "ALREADY_SUBSCRIBED"
	CodeConfirmationRequired Code = "CONFIRMATION_REQUIRED"
)

// Error is the engine's coded error. Two errors match under errors.Is when
// their codes are equal, so the sentinels below work as targets.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a coded error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

var (
	// ErrBusy: another session is active for the owner.
	ErrBusy = &Error{Code: CodeBusy, Message: "owner is busy"}
	// ErrAlreadyRecording: a recording is already active for the owner.
	ErrAlreadyRecording = &Error{Code: CodeAlreadyRecording, Message: "already recording"}
	// ErrEmptySequence: there is nothing persisted to play.
	ErrEmptySequence = &Error{Code: CodeEmptySequence, Message: "sequence is empty"}
	// ErrSaveFailed: the persistence transaction was rolled back.
	ErrSaveFailed = &Error{Code: CodeSaveFailed, Message: "save failed"}
	// ErrInvalidState: the operation is not valid in the current session state.
	ErrInvalidState = &Error{Code: CodeInvalidState, Message: "invalid state"}
	// ErrNotActive: no matching session is active for the owner.
	ErrNotActive = &Error{Code: CodeNotActive, Message: "no active session"}
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	// ErrAlreadySubscribed: a sink is attached already; unsubscribe first.
	ErrAlreadySubscribed = &Error{Code: CodeAlreadySubscribed, Message: "already subscribed"}
	// ErrConfirmationRequired: the edited script has a different line count.
	ErrConfirmationRequired = &Error{Code: CodeConfirmationRequired, Message: "confirmation required"}
)

// FormatError reports the first script line that failed to parse.
type FormatError struct {
	Line int    // 1-based
	Text string // raw line as read
	Err  error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("line %d: %q", e.Line, e.Text)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
