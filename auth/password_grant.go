package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/tidwall/gjson"

	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/transport"
)

const GrantTypePassword = "password"

type PasswordGrantConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	Transport core.TransportAdapter
	Logger    core.Logger
	Metrics   core.MetricsRecorder
	Now       func() time.Time
}

// PasswordGrantProvider acquires a bearer token with the resource owner
// password grant and caches it for the lifetime of the provider. One provider
// backs one caller session.
type PasswordGrantProvider struct {
	config    PasswordGrantConfig
	transport core.TransportAdapter
	logger    core.Logger
	metrics   core.MetricsRecorder

	mu       sync.Mutex
	token    string
	issuedAt time.Time
}

func NewPasswordGrantProvider(cfg PasswordGrantConfig) (*PasswordGrantProvider, error) {
	if cfg.Transport == nil {
		return nil, core.DependencyError("auth: password grant requires a transport")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, core.BadInputError("auth: password grant endpoint is required")
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}

	return &PasswordGrantProvider{
		config: PasswordGrantConfig{
			Endpoint:     endpoint,
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: cfg.ClientSecret,
			Username:     strings.TrimSpace(cfg.Username),
			Password:     cfg.Password,
			Now:          now,
		},
		transport: cfg.Transport,
		logger:    cfg.Logger,
		metrics:   metrics,
	}, nil
}

// Token returns the cached token, running the grant when nothing is cached.
// A grant response without access_token yields "" and a nil error; the grant
// error fields are logged.
func (p *PasswordGrantProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" {
		return p.token, nil
	}
	return p.acquireLocked(ctx)
}

// Renew discards the cached token and always runs a fresh grant.
func (p *PasswordGrantProvider) Renew(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = ""
	p.issuedAt = time.Time{}
	return p.acquireLocked(ctx)
}

func (p *PasswordGrantProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	p.issuedAt = time.Time{}
}

// Cached reports the current session token without acquiring one.
func (p *PasswordGrantProvider) Cached() (string, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token, p.issuedAt
}

// DoAuthRequest posts the form to endpoint and returns the raw body.
func (p *PasswordGrantProvider) DoAuthRequest(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	res, err := p.transport.Do(ctx, transport.FormRequest(endpoint, form))
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (p *PasswordGrantProvider) acquireLocked(ctx context.Context) (string, error) {
	body, err := p.DoAuthRequest(ctx, p.config.Endpoint, passwordGrantForm(p.config))
	if err != nil {
		p.recordGrant(ctx, "transport_error")
		return "", goerrors.Wrap(err, goerrors.CategoryExternal, "auth: password grant request failed").
			WithTextCode(core.ErrorExternalFailure).
			WithMetadata(map[string]any{"endpoint": p.config.Endpoint})
	}
	if !gjson.ValidBytes(body) {
		p.recordGrant(ctx, "decode_error")
		return "", core.DecodeError(errInvalidGrantBody, map[string]any{
			"endpoint":   p.config.Endpoint,
			"body_bytes": len(body),
		})
	}

	token := strings.TrimSpace(gjson.GetBytes(body, "access_token").String())
	p.token = token
	if token == "" {
		p.issuedAt = time.Time{}
		p.recordGrant(ctx, "no_token")
		core.LogWarn(ctx, p.logger, "crm password grant returned no access token", grantFailureFields(body, p.config))
		return "", nil
	}
	p.issuedAt = p.config.Now().UTC()
	p.recordGrant(ctx, "ok")
	return token, nil
}

func (p *PasswordGrantProvider) recordGrant(ctx context.Context, outcome string) {
	p.metrics.IncCounter(ctx, core.MetricTokenGrantTotal, 1, map[string]string{"outcome": outcome})
}

var _ core.TokenSource = (*PasswordGrantProvider)(nil)
