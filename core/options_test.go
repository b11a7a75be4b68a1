package core

import (
	"context"
	"errors"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

type fixedConfigProvider struct {
	cfg Config
	err error
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, p.err
}

type stubProfileStore struct{}

func (stubProfileStore) GetAttribute(context.Context, string, string) (string, error) {
	return "", nil
}

func (stubProfileStore) SetAttribute(context.Context, string, string, string) error {
	return nil
}

func validRuntimeConfig() Config {
	return Config{
		Auth: AuthConfig{
			Endpoint:     "https://login.example/services/oauth2/token",
			ClientID:     "client",
			ClientSecret: "secret",
			Username:     "api@example.com",
			Password:     "pass",
		},
		Query: QueryConfig{
			Endpoint: "https://crm.example/services/data/v60.0/query/",
		},
	}
}

func TestResolveDependencies_Defaults(t *testing.T) {
	deps, err := ResolveDependencies(context.Background(), validRuntimeConfig())
	if err != nil {
		t.Fatalf("resolve dependencies: %v", err)
	}
	if deps.Logger == nil || deps.LoggerProvider == nil {
		t.Fatalf("expected default logger and provider")
	}
	if deps.MetricsRecorder == nil || deps.ErrorMapper == nil {
		t.Fatalf("expected default metrics recorder and error mapper")
	}
	if deps.Config.ServiceName != DefaultServiceName {
		t.Fatalf("expected default service name, got %q", deps.Config.ServiceName)
	}
	if deps.Config.RowLimit() != DefaultRowLimit {
		t.Fatalf("expected default row limit, got %d", deps.Config.RowLimit())
	}
	if deps.Config.AccountAttribute() != DefaultAccountAttribute {
		t.Fatalf("expected default account attribute, got %q", deps.Config.AccountAttribute())
	}
}

func TestResolveDependencies_RuntimeOverridesLoaded(t *testing.T) {
	loader := StaticRawConfigLoader{Values: map[string]any{
		"service_name": "from-file",
		"query": map[string]any{
			"row_limit":              50,
			"date_range_lower_bound": "2023-06-01",
		},
		"logging": map[string]any{"enabled": true},
	}}
	runtime := validRuntimeConfig()
	runtime.ServiceName = "runtime"

	deps, err := ResolveDependencies(context.Background(), runtime,
		WithConfigProvider(NewCfgxConfigProvider(loader)),
		WithLogger(glog.Nop()),
		WithProfileStore(stubProfileStore{}),
	)
	if err != nil {
		t.Fatalf("resolve dependencies: %v", err)
	}
	if deps.Config.ServiceName != "runtime" {
		t.Fatalf("expected runtime service name precedence, got %q", deps.Config.ServiceName)
	}
	if deps.Config.RowLimit() != 50 {
		t.Fatalf("expected loaded row limit, got %d", deps.Config.RowLimit())
	}
	if deps.Config.DateLowerBound() != "2023-06-01T00:00:00Z" {
		t.Fatalf("unexpected lower bound %q", deps.Config.DateLowerBound())
	}
	if !deps.Config.Logging.Enabled {
		t.Fatalf("expected logging flag from loaded config")
	}
	if deps.ProfileStore == nil {
		t.Fatalf("expected profile store option to be kept")
	}
}

func TestResolveDependencies_ValidationFailure(t *testing.T) {
	if _, err := ResolveDependencies(context.Background(), Config{}); err == nil {
		t.Fatalf("expected validation error without endpoints")
	}
}

func TestResolveDependencies_ConfigProviderError(t *testing.T) {
	sentinel := errors.New("boom")
	_, err := ResolveDependencies(context.Background(), validRuntimeConfig(),
		WithConfigProvider(&fixedConfigProvider{err: sentinel}),
	)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected provider error to propagate, got %v", err)
	}
}
