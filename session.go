package crmquery

import (
	"context"
	"strings"

	"github.com/goliatone/go-crmquery/account"
	"github.com/goliatone/go-crmquery/adapters/gologger"
	"github.com/goliatone/go-crmquery/auth"
	"github.com/goliatone/go-crmquery/catalog"
	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/executor"
	"github.com/goliatone/go-crmquery/query"
	"github.com/goliatone/go-crmquery/transport"
)

// Session wires one token provider, one executor and one account resolver
// over a shared transport. Catalogs handed out by ForCustomer share all three.
type Session struct {
	config   core.Config
	deps     core.Dependencies
	tokens   *auth.PasswordGrantProvider
	executor *executor.Executor
	resolver *account.Resolver
	policy   catalog.Policy
}

// NewSession resolves configuration through the options stack and builds the
// session collaborators. A profile store is required; the transport defaults
// to the REST adapter.
func NewSession(ctx context.Context, runtime Config, opts ...Option) (*Session, error) {
	deps, err := core.ResolveDependencies(ctx, runtime, opts...)
	if err != nil {
		return nil, err
	}
	if deps.ProfileStore == nil {
		return nil, core.DependencyError("crmquery: profile store is required")
	}
	if deps.Transport == nil {
		deps.Transport = transport.NewRESTAdapter(nil)
	}
	cfg := deps.Config
	deps.Transport = transport.NewRateLimitedAdapter(deps.Transport, cfg.Query.RequestsPerSecond)

	tokens, err := auth.NewPasswordGrantProvider(auth.PasswordGrantConfig{
		Endpoint:     cfg.Auth.Endpoint,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Username:     cfg.Auth.Username,
		Password:     cfg.Auth.Password,
		Transport:    deps.Transport,
		Logger:       gologger.For(deps.LoggerProvider, gologger.ComponentAuth),
		Metrics:      deps.MetricsRecorder,
	})
	if err != nil {
		return nil, err
	}
	exec, err := executor.New(executor.Config{
		Endpoint:        cfg.Query.Endpoint,
		AllowEmptyToken: cfg.Query.AllowEmptyToken,
		LogRequests:     cfg.Logging.Enabled,
		Transport:       deps.Transport,
		Tokens:          tokens,
		Logger:          gologger.For(deps.LoggerProvider, gologger.ComponentExecutor),
		Metrics:         deps.MetricsRecorder,
	})
	if err != nil {
		return nil, err
	}
	resolver, err := account.NewResolver(account.Config{
		AccountAttribute: cfg.AccountAttribute(),
		CompanyAttribute: cfg.CompanyAttribute(),
		Runner:           exec,
		Store:            deps.ProfileStore,
		Recorder:         deps.Recorder,
		Logger:           gologger.For(deps.LoggerProvider, gologger.ComponentAccount),
	})
	if err != nil {
		return nil, err
	}

	core.LogInfo(ctx, deps.Logger, "crm session ready", map[string]any{
		"service":   cfg.ServiceName,
		"transport": deps.Transport.Kind(),
		"audit":     deps.Recorder != nil,
	})
	return &Session{
		config:   cfg,
		deps:     deps,
		tokens:   tokens,
		executor: exec,
		resolver: resolver,
		policy:   catalog.PolicyFromConfig(cfg),
	}, nil
}

func (s *Session) Config() Config {
	return s.config
}

func (s *Session) Dependencies() core.Dependencies {
	return s.deps
}

// ForCustomer returns the catalog bound to customerID.
func (s *Session) ForCustomer(_ context.Context, customerID string) (query.CatalogReader, error) {
	if s == nil {
		return nil, core.DependencyError("crmquery: session is nil")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, core.BadInputError("crmquery: customer id is required")
	}
	reader, err := s.Catalog(customerID)
	if err != nil {
		return nil, err
	}
	return reader, nil
}

// Catalog is ForCustomer with the concrete type.
func (s *Session) Catalog(customerID string) (*catalog.Catalog, error) {
	return catalog.New(catalog.Config{
		CustomerID: customerID,
		Policy:     s.policy,
		Runner:     s.executor,
		Accounts:   s.resolver,
		Logger:     gologger.For(s.deps.LoggerProvider, gologger.ComponentCatalog),
	})
}

// RunQuery sends a raw query string, for example "?q=SELECT+Id+FROM+Account".
func (s *Session) RunQuery(ctx context.Context, params string) (QueryResult, error) {
	if s == nil || s.executor == nil {
		return QueryResult{}, core.DependencyError("crmquery: session is not configured")
	}
	return s.executor.RunQuery(ctx, params)
}

func (s *Session) Resolve(ctx context.Context, customerID string) (Resolution, error) {
	if s == nil || s.resolver == nil {
		return Resolution{}, core.DependencyError("crmquery: session is not configured")
	}
	return s.resolver.Resolve(ctx, customerID)
}

// Token returns the session bearer token, running the grant on first use.
func (s *Session) Token(ctx context.Context) (string, error) {
	if s == nil || s.tokens == nil {
		return "", core.DependencyError("crmquery: session is not configured")
	}
	return s.tokens.Token(ctx)
}

// Invalidate drops the cached token; the next query runs a fresh grant.
func (s *Session) Invalidate() {
	if s == nil || s.tokens == nil {
		return
	}
	s.tokens.Invalidate()
}

var _ query.CatalogSource = (*Session)(nil)
