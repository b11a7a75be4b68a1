package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

var (
	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// TokenSource owns the session bearer token.
type TokenSource interface {
	// Token returns the cached token, acquiring one when none is cached. An
	// empty token with a nil error means the grant returned no access token.
	Token(ctx context.Context) (string, error)
	// Renew discards the cached token and acquires a fresh one.
	Renew(ctx context.Context) (string, error)
}

// ProfileStore reads and writes single string-valued customer attributes.
// SetAttribute persists the value; ErrProfileValidation and
// ErrProfileMismatch mark write failures callers may treat as non-fatal.
type ProfileStore interface {
	GetAttribute(ctx context.Context, customerID string, name string) (string, error)
	SetAttribute(ctx context.Context, customerID string, name string, value string) error
}

// ResolutionRecorder keeps an audit trail of account lookups that reached the
// CRM. Failures to record never fail the resolution.
type ResolutionRecorder interface {
	RecordResolution(ctx context.Context, customerID string, resolution Resolution) error
}

type QueryRunner interface {
	RunQuery(ctx context.Context, params string) (QueryResult, error)
}

type AccountResolver interface {
	Resolve(ctx context.Context, customerID string) (Resolution, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
