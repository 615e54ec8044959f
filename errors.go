package loginpage

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// OfflineMessage is surfaced instead of the call failure while offline
const OfflineMessage = "No internet connection. Please check your network."

// DefaultErrorMessage is used when a failure carries no message
const DefaultErrorMessage = "An error occurred"

const (
	TextCodeCallInFlight      = "CALL_IN_FLIGHT"
	TextCodeCallSuperseded    = "CALL_SUPERSEDED"
	TextCodeClosed            = "FLOW_CLOSED"
	TextCodeInvalidTransition = "INVALID_FLOW_STEP_TRANSITION"
	TextCodeFormInvalid       = "FORM_INVALID"
	TextCodeCodeIncomplete    = "CODE_INCOMPLETE"
	TextCodeCodeExpired       = "CODE_EXPIRED"
	TextCodeLoading           = "REQUEST_PENDING"
	TextCodeNoCodeRequester   = "NO_CODE_REQUESTER"
	TextCodeNoTwoFactorForm   = "TWO_FACTOR_NOT_MOUNTED"
	TextCodeRejected          = "REQUEST_REJECTED"
	TextCodeNetworkError      = "NETWORK_ERROR"
	TextCodeTokenExpired      = "SESSION_TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "SESSION_TOKEN_MALFORMED"
)

// ErrCallInFlight is returned when a call of the same kind is still running
var ErrCallInFlight = goerrors.New("call already in flight", goerrors.CategoryConflict).
	WithTextCode(TextCodeCallInFlight).
	WithCode(goerrors.CodeConflict)

// ErrCallSuperseded is returned when a result arrives after the step that
// started the call was left
var ErrCallSuperseded = goerrors.New("call result superseded", goerrors.CategoryOperation).
	WithTextCode(TextCodeCallSuperseded).
	WithCode(goerrors.CodeConflict)

// ErrClosed is returned when a result arrives after teardown
var ErrClosed = goerrors.New("closed", goerrors.CategoryOperation).
	WithTextCode(TextCodeClosed).
	WithCode(goerrors.CodeConflict)

// ErrInvalidTransition is returned when the flow cannot move to the requested step
var ErrInvalidTransition = goerrors.New("invalid flow step transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrFormInvalid is returned when a login submit is blocked by validation errors
var ErrFormInvalid = goerrors.New("form has validation errors", goerrors.CategoryValidation).
	WithTextCode(TextCodeFormInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrCodeIncomplete is returned when the code has empty or non digit slots
var ErrCodeIncomplete = goerrors.New("code is incomplete", goerrors.CategoryBadInput).
	WithTextCode(TextCodeCodeIncomplete).
	WithCode(goerrors.CodeBadRequest)

// ErrCodeExpired is returned when submitting after the countdown reached zero
var ErrCodeExpired = goerrors.New("code expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeCodeExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrLoading is returned when submitting while a call is pending
var ErrLoading = goerrors.New("request pending", goerrors.CategoryConflict).
	WithTextCode(TextCodeLoading).
	WithCode(goerrors.CodeConflict)

// ErrNoCodeRequester is returned when requesting a new code without a callback
var ErrNoCodeRequester = goerrors.New("no code requester configured", goerrors.CategoryInternal).
	WithTextCode(TextCodeNoCodeRequester).
	WithCode(goerrors.CodeInternal)

// ErrNoTwoFactorForm is returned when a code action runs outside the two-factor step
var ErrNoTwoFactorForm = goerrors.New("two-factor form is not mounted", goerrors.CategoryConflict).
	WithTextCode(TextCodeNoTwoFactorForm).
	WithCode(goerrors.CodeConflict)

// Messages returned by the mock API and the HTTP transport
const (
	MessageNetworkError       = "Network error: No internet connection"
	MessageInvalidCredentials = "Invalid email or password"
	MessageInvalidCode        = "Invalid code"
)

// NewAPIError builds a rejection by the API boundary. The message is shown
// to the user as is.
func NewAPIError(message string) *goerrors.Error {
	return NewAPIErrorWithStatus(message, goerrors.CodeUnauthorized)
}

// NewAPIErrorWithStatus builds an API failure carrying the HTTP status that
// reported it.
func NewAPIErrorWithStatus(message string, status int) *goerrors.Error {
	return goerrors.New(message, categoryForStatus(status)).
		WithTextCode(TextCodeRejected).
		WithCode(status)
}

// NewNetworkError wraps a transport failure. source may be nil.
func NewNetworkError(source error) *goerrors.Error {
	var richErr *goerrors.Error
	if source != nil {
		richErr = goerrors.Wrap(source, goerrors.CategoryOperation, MessageNetworkError)
	} else {
		richErr = goerrors.New(MessageNetworkError, goerrors.CategoryOperation)
	}
	return richErr.
		WithTextCode(TextCodeNetworkError).
		WithCode(http.StatusServiceUnavailable)
}

func categoryForStatus(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return goerrors.CategoryAuth
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryInternal
	}
}

// ErrorMessage returns the user facing message for err, or the default
// message when err carries none.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if msg := strings.TrimSpace(richErr.Message); msg != "" {
			return msg
		}
		return DefaultErrorMessage
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}

	return DefaultErrorMessage
}

// IsNetworkError will check for transport level failures
func IsNetworkError(err error) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.TextCode == TextCodeNetworkError
}

// StatusCode returns the HTTP status carried by err, zero when it has none
func StatusCode(err error) int {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Code
	}
	return 0
}
