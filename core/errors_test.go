package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestUnauthenticatedError_Envelope(t *testing.T) {
	err := UnauthenticatedError(map[string]any{"endpoint": "https://login.example/token"})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected errors.Is(err, ErrUnauthenticated)")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryAuth {
		t.Fatalf("expected auth category, got %q", rich.Category)
	}
	if rich.Code != http.StatusUnauthorized {
		t.Fatalf("expected %d, got %d", http.StatusUnauthorized, rich.Code)
	}
	if rich.TextCode != ErrorUnauthenticated {
		t.Fatalf("expected %q, got %q", ErrorUnauthenticated, rich.TextCode)
	}
}

func TestPersistenceConflictError_CategoryFollowsCause(t *testing.T) {
	validation := PersistenceConflictError(ErrProfileValidation, nil)
	var rich *goerrors.Error
	if !goerrors.As(validation, &rich) {
		t.Fatalf("expected go-errors envelope")
	}
	if rich.Category != goerrors.CategoryValidation || rich.Code != http.StatusBadRequest {
		t.Fatalf("unexpected validation envelope: %q %d", rich.Category, rich.Code)
	}

	mismatch := PersistenceConflictError(fmt.Errorf("save: %w", ErrProfileMismatch), nil)
	if !goerrors.As(mismatch, &rich) {
		t.Fatalf("expected go-errors envelope")
	}
	if rich.Category != goerrors.CategoryConflict || rich.Code != http.StatusConflict {
		t.Fatalf("unexpected mismatch envelope: %q %d", rich.Category, rich.Code)
	}
	if !IsPersistenceConflict(mismatch) {
		t.Fatalf("expected mismatch to be a persistence conflict")
	}
	if IsPersistenceConflict(errors.New("connection refused")) {
		t.Fatalf("expected plain errors to be fatal")
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		textCode string
		code     int
	}{
		{name: "unauthenticated", err: ErrUnauthenticated, textCode: ErrorUnauthenticated, code: http.StatusUnauthorized},
		{name: "no account", err: fmt.Errorf("orders: %w", ErrNoAccount), textCode: ErrorNoAccount, code: http.StatusNotFound},
		{name: "persistence", err: ErrProfileMismatch, textCode: ErrorPersistenceConflict, code: http.StatusBadRequest},
		{name: "rich passthrough", err: BadInputError("bad"), textCode: ErrorBadInput, code: http.StatusBadRequest},
		{name: "rate limited", err: goerrors.New("slow down", goerrors.CategoryRateLimit), textCode: ErrorRateLimited, code: http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapError(tc.err)
			if mapped == nil {
				t.Fatalf("expected mapped error")
			}
			if mapped.TextCode != tc.textCode {
				t.Fatalf("expected %q, got %q", tc.textCode, mapped.TextCode)
			}
			if mapped.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, mapped.Code)
			}
		})
	}
	if MapError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
