package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// Failure kinds shared by the tournament directory and the registration
// ledger. Handlers map each of these to an HTTP status; anything else is
// treated as an unknown internal failure and logged with its cause.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrAccessDenied           = errors.New("access denied")

	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")

	ErrDuplicateAlias     = errors.New("alias already taken for this tournament")
	ErrDuplicateEmail     = errors.New("email already registered for this tournament")
	ErrRegistrationClosed = errors.New("registration is closed for this tournament")
	ErrTournamentFull     = errors.New("tournament is full")

	// Retryable transport-level failures.
	ErrTimeout     = errors.New("operation timed out")
	ErrUnavailable = errors.New("storage unavailable")

	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
)

// ValidationError reports field-level input failures as a field→message map.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// translateCtxErr folds context expiry and storage transport failures into
// the error taxonomy so callers can distinguish retryable failures from real
// ones.
func translateCtxErr(err error) error {
	var (
		pqErr  *pq.Error
		netErr net.Error
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, driver.ErrBadConn):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.As(err, &pqErr) && pqErr.Code.Class() == "08":
		// Class 08: connection exceptions.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.As(err, &netErr):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}
