package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput            = "CRM_BAD_INPUT"
	ErrorUnauthenticated     = "CRM_UNAUTHENTICATED"
	ErrorSessionExpired      = "CRM_SESSION_EXPIRED"
	ErrorPersistenceConflict = "CRM_PERSISTENCE_CONFLICT"
	ErrorNoAccount           = "CRM_NO_ACCOUNT"
	ErrorExternalFailure     = "CRM_EXTERNAL_FAILURE"
	ErrorDecodeFailed        = "CRM_DECODE_FAILED"
	ErrorRateLimited         = "CRM_RATE_LIMITED"
	ErrorInternal            = "CRM_INTERNAL_ERROR"
)

// SessionExpiredCode is the application-level error code the remote store
// returns in a 200 body when the bearer token is no longer valid.
const SessionExpiredCode = "INVALID_SESSION_ID"

var (
	ErrUnauthenticated   = errors.New("crmquery: credential grant returned no access token")
	ErrSessionExpired    = errors.New("crmquery: remote session expired")
	ErrNoAccount         = errors.New("crmquery: no account associated with customer")
	ErrProfileValidation = errors.New("crmquery: profile attribute failed validation")
	ErrProfileMismatch   = errors.New("crmquery: profile attribute input mismatch")
)

// IsPersistenceConflict reports whether err belongs to the non-fatal class of
// profile store write failures.
func IsPersistenceConflict(err error) bool {
	return errors.Is(err, ErrProfileValidation) || errors.Is(err, ErrProfileMismatch)
}

func UnauthenticatedError(metadata map[string]any) error {
	err := goerrors.Wrap(ErrUnauthenticated, goerrors.CategoryAuth, ErrUnauthenticated.Error()).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ErrorUnauthenticated)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func NoAccountError(customerID string) error {
	return goerrors.Wrap(ErrNoAccount, goerrors.CategoryNotFound, ErrNoAccount.Error()).
		WithCode(http.StatusNotFound).
		WithTextCode(ErrorNoAccount).
		WithMetadata(map[string]any{"customer_id": strings.TrimSpace(customerID)})
}

func PersistenceConflictError(source error, metadata map[string]any) error {
	category := goerrors.CategoryValidation
	if errors.Is(source, ErrProfileMismatch) {
		category = goerrors.CategoryConflict
	}
	err := goerrors.Wrap(source, category, "crmquery: account number not persisted").
		WithCode(serviceHTTPStatus(category)).
		WithTextCode(ErrorPersistenceConflict)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func DecodeError(source error, metadata map[string]any) error {
	err := goerrors.Wrap(source, goerrors.CategoryExternal, "crmquery: decode response body").
		WithCode(http.StatusBadGateway).
		WithTextCode(ErrorDecodeFailed)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func BadInputError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorBadInput)
}

func DependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorInternal)
}

// MapError normalizes any error into a go-errors envelope carrying a CRM text
// code and an HTTP status.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrSessionExpired):
		return ensureErrorEnvelope(goerrors.Wrap(err, goerrors.CategoryAuth, err.Error()))
	case errors.Is(err, ErrNoAccount):
		return ensureErrorEnvelope(goerrors.Wrap(err, goerrors.CategoryNotFound, err.Error()))
	case IsPersistenceConflict(err):
		return ensureErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
				WithTextCode(ErrorPersistenceConflict),
		)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return ErrorBadInput
	case goerrors.CategoryValidation, goerrors.CategoryConflict:
		return ErrorPersistenceConflict
	case goerrors.CategoryNotFound:
		return ErrorNoAccount
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthenticated
	case goerrors.CategoryExternal:
		return ErrorExternalFailure
	case goerrors.CategoryRateLimit:
		return ErrorRateLimited
	default:
		return ErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
