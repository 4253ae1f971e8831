package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Kind is the category a failure is reported under.
type Kind string

const (
	KindPermissionDenied Kind = "permission_denied"
	KindNetwork          Kind = "network"
	KindNotFound         Kind = "not_found"
	KindInvalid          Kind = "invalid"
	KindUnauthenticated  Kind = "unauthenticated"
	KindUnknown          Kind = "unknown"
)

// Sentinel errors returned by repositories and usecases.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("permission denied")
	ErrInvalid   = errors.New("invalid request")
	ErrAuth      = errors.New("not authenticated")
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func NotFound(op, msg string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf("%w: %s", ErrNotFound, msg)}
}

func Forbidden(op, msg string) *Error {
	return &Error{Kind: KindPermissionDenied, Op: op, Err: fmt.Errorf("%w: %s", ErrForbidden, msg)}
}

func Invalid(op, msg string) *Error {
	return &Error{Kind: KindInvalid, Op: op, Err: fmt.Errorf("%w: %s", ErrInvalid, msg)}
}

func Unauthenticated(op, msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Op: op, Err: fmt.Errorf("%w: %s", ErrAuth, msg)}
}

// Classify wraps err into an *Error. Already classified errors keep their kind.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		if op == "" || appErr.Op != "" {
			return appErr
		}
		return &Error{Kind: appErr.Kind, Op: op, Err: appErr.Err}
	}
	return &Error{Kind: kindOf(err), Op: op, Err: err}
}

// KindOf reports the kind err would be classified under.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return kindOf(err)
}

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, redis.Nil):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindPermissionDenied
	case errors.Is(err, ErrInvalid):
		return KindInvalid
	case errors.Is(err, ErrAuth):
		return KindUnauthenticated
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindNetwork
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return KindInvalid
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	// Drivers often only expose connection failures through the message
	msg := strings.ToLower(err.Error())
	for _, indicator := range []string{"connection refused", "connection reset", "no such host", "broken pipe", "i/o timeout"} {
		if strings.Contains(msg, indicator) {
			return KindNetwork
		}
	}
	return KindUnknown
}

// HTTPStatus maps an error to the response status handlers should use.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindInvalid:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
