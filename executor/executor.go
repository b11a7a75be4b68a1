// Package executor runs authenticated queries against the CRM query endpoint
// and renews the session once when the server reports it expired.
package executor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/tidwall/gjson"

	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/transport"
)

type State string

const (
	StateInit           State = "INIT"
	StateTokenReady     State = "TOKEN_READY"
	StateSent           State = "SENT"
	StateOK             State = "OK"
	StateSessionExpired State = "SESSION_EXPIRED"
	StateReauth         State = "REAUTH"
	StateRetrySent      State = "RETRY_SENT"
	StateDone           State = "DONE"
)

// StateObserver is notified on every state transition of a RunQuery call.
type StateObserver func(ctx context.Context, state State, uri string)

type Config struct {
	Endpoint        string
	AllowEmptyToken bool
	LogRequests     bool

	Transport core.TransportAdapter
	Tokens    core.TokenSource
	Logger    core.Logger
	Metrics   core.MetricsRecorder
	Observer  StateObserver
}

type Executor struct {
	endpoint        string
	allowEmptyToken bool
	logRequests     bool
	transport       core.TransportAdapter
	tokens          core.TokenSource
	logger          core.Logger
	metrics         core.MetricsRecorder
	observer        StateObserver
}

func New(cfg Config) (*Executor, error) {
	if cfg.Transport == nil {
		return nil, core.DependencyError("executor: transport is required")
	}
	if cfg.Tokens == nil {
		return nil, core.DependencyError("executor: token source is required")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, core.BadInputError("executor: query endpoint is required")
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &Executor{
		endpoint:        endpoint,
		allowEmptyToken: cfg.AllowEmptyToken,
		logRequests:     cfg.LogRequests,
		transport:       cfg.Transport,
		tokens:          cfg.Tokens,
		logger:          cfg.Logger,
		metrics:         metrics,
		observer:        cfg.Observer,
	}, nil
}

// RunQuery sends endpoint+params with the session bearer token. When the first
// response carries INVALID_SESSION_ID the token is renewed and the identical
// request is sent once more; that second response is returned as decoded,
// whatever it holds.
func (e *Executor) RunQuery(ctx context.Context, params string) (core.QueryResult, error) {
	req, err := core.NewQueryRequest(core.QueryRequestInput{Endpoint: e.endpoint, Params: params})
	if err != nil {
		return core.QueryResult{}, err
	}
	return e.Run(ctx, req)
}

func (e *Executor) Run(ctx context.Context, req core.QueryRequest) (core.QueryResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	uri := req.URI()
	startedAt := time.Now()
	e.transition(ctx, StateInit, uri)

	token, err := e.tokens.Token(ctx)
	if err != nil {
		e.record(ctx, startedAt, "token_error")
		return core.QueryResult{}, err
	}
	if err := e.checkToken(token, uri); err != nil {
		e.record(ctx, startedAt, "unauthenticated")
		return core.QueryResult{}, err
	}
	e.transition(ctx, StateTokenReady, uri)

	e.logRequest(ctx, uri, 1)
	body, err := e.send(ctx, uri, token)
	if err != nil {
		e.record(ctx, startedAt, "transport_error")
		return core.QueryResult{}, err
	}
	e.transition(ctx, StateSent, uri)

	if !sessionExpired(body) {
		result, err := e.decode(ctx, uri, body, 1)
		if err != nil {
			e.record(ctx, startedAt, "decode_error")
			return core.QueryResult{}, err
		}
		e.transition(ctx, StateOK, uri)
		e.record(ctx, startedAt, "ok")
		return result, nil
	}

	e.transition(ctx, StateSessionExpired, uri)
	if e.logRequests {
		if expired, err := core.DecodeQueryResult(body); err == nil {
			e.logResponse(ctx, uri, 1, expired.Raw)
		}
	}
	core.LogWarn(ctx, e.logger, "crm session expired, renewing token", map[string]any{
		"uri":   uri,
		"error": core.ErrSessionExpired.Error(),
	})
	e.metrics.IncCounter(ctx, core.MetricQueryRetryTotal, 1, nil)

	e.transition(ctx, StateReauth, uri)
	token, err = e.tokens.Renew(ctx)
	if err != nil {
		e.record(ctx, startedAt, "token_error")
		return core.QueryResult{}, err
	}
	if err := e.checkToken(token, uri); err != nil {
		e.record(ctx, startedAt, "unauthenticated")
		return core.QueryResult{}, err
	}

	e.logRequest(ctx, uri, 2)
	body, err = e.send(ctx, uri, token)
	if err != nil {
		e.record(ctx, startedAt, "transport_error")
		return core.QueryResult{}, err
	}
	e.transition(ctx, StateRetrySent, uri)

	result, err := e.decode(ctx, uri, body, 2)
	if err != nil {
		e.record(ctx, startedAt, "decode_error")
		return core.QueryResult{}, err
	}
	e.transition(ctx, StateDone, uri)
	e.record(ctx, startedAt, "retried")
	return result, nil
}

func (e *Executor) checkToken(token string, uri string) error {
	if strings.TrimSpace(token) != "" || e.allowEmptyToken {
		return nil
	}
	return core.UnauthenticatedError(map[string]any{"uri": uri})
}

func (e *Executor) send(ctx context.Context, uri string, token string) ([]byte, error) {
	res, err := e.transport.Do(ctx, transport.GetRequest(uri, map[string]string{
		"Authorization": "Bearer " + token,
	}))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "executor: query request failed").
			WithTextCode(core.ErrorExternalFailure).
			WithMetadata(map[string]any{"uri": uri})
	}
	return res.Body, nil
}

func (e *Executor) decode(ctx context.Context, uri string, body []byte, attempt int) (core.QueryResult, error) {
	result, err := core.DecodeQueryResult(body)
	if err != nil {
		return core.QueryResult{}, err
	}
	e.logResponse(ctx, uri, attempt, result.Raw)
	return result, nil
}

func (e *Executor) logRequest(ctx context.Context, uri string, attempt int) {
	if !e.logRequests {
		return
	}
	core.LogInfo(ctx, e.logger, "crm query request", map[string]any{
		"uri":     uri,
		"attempt": attempt,
	})
}

func (e *Executor) logResponse(ctx context.Context, uri string, attempt int, raw any) {
	if !e.logRequests {
		return
	}
	encoded, _ := json.Marshal(raw)
	core.LogInfo(ctx, e.logger, "crm query response", map[string]any{
		"uri":      uri,
		"attempt":  attempt,
		"response": string(encoded),
	})
}

func (e *Executor) transition(ctx context.Context, state State, uri string) {
	if e.observer != nil {
		e.observer(ctx, state, uri)
	}
}

func (e *Executor) record(ctx context.Context, startedAt time.Time, outcome string) {
	tags := map[string]string{"outcome": outcome}
	e.metrics.IncCounter(ctx, core.MetricQueryTotal, 1, tags)
	e.metrics.ObserveHistogram(ctx, core.MetricQueryDuration, float64(time.Since(startedAt).Milliseconds()), core.CloneTags(tags))
}

// sessionExpired probes the raw body: an array whose first element carries
// errorCode INVALID_SESSION_ID.
func sessionExpired(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return false
	}
	return root.Get("0.errorCode").String() == core.SessionExpiredCode
}

var _ core.QueryRunner = (*Executor)(nil)
