package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	persistence "github.com/goliatone/go-persistence-bun"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	crmquery "github.com/goliatone/go-crmquery"
	"github.com/goliatone/go-crmquery/adapters/gologger"
	prommetrics "github.com/goliatone/go-crmquery/adapters/prometheus"
	"github.com/goliatone/go-crmquery/core"
	sqlstore "github.com/goliatone/go-crmquery/store/sql"
)

// environment is shared by every subcommand of one invocation.
type environment struct {
	viper      *viper.Viper
	configFile string
	verbose    bool
	metrics    bool
	out        io.Writer
	errOut     io.Writer

	// transport replaces the REST adapter, tests point it at a fake CRM.
	transport core.TransportAdapter

	registry *prometheus.Registry
	logger   *glog.BaseLogger
}

func newEnvironment(out io.Writer, errOut io.Writer) *environment {
	return &environment{
		viper:    viper.New(),
		out:      out,
		errOut:   errOut,
		registry: prometheus.NewRegistry(),
	}
}

func (e *environment) metricsRecorder() core.MetricsRecorder {
	if !e.metrics {
		return core.NopMetricsRecorder{}
	}
	return prommetrics.NewRecorder(e.registry)
}

// printMetrics writes one line per sample gathered during the run.
func (e *environment) printMetrics() error {
	if !e.metrics {
		return nil
	}
	families, err := e.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := ""
			for _, pair := range metric.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", pair.GetName(), pair.GetValue())
			}
			switch {
			case metric.GetCounter() != nil:
				fmt.Fprintf(e.errOut, "metric %s%s value=%g\n", family.GetName(), labels, metric.GetCounter().GetValue())
			case metric.GetHistogram() != nil:
				histogram := metric.GetHistogram()
				fmt.Fprintf(e.errOut, "metric %s%s count=%d sum=%g\n", family.GetName(), labels, histogram.GetSampleCount(), histogram.GetSampleSum())
			}
		}
	}
	return nil
}

func (e *environment) loggerProvider() glog.LoggerProvider {
	if !e.verbose {
		return glog.ProviderFromLogger(glog.Nop())
	}
	if e.logger == nil {
		e.logger = glog.NewLogger(
			glog.WithName("crmquery"),
			glog.WithWriter(e.errOut),
			glog.WithLoggerTypeConsole(),
			glog.WithLevel("debug"),
		)
	}
	return e.logger
}

func (e *environment) configProvider() (*core.CfgxConfigProvider, error) {
	loader, err := newViperLoader(e.viper, e.configFile)
	if err != nil {
		return nil, err
	}
	return core.NewCfgxConfigProvider(loader), nil
}

// loadConfig reads configuration without the session validation, storage
// commands run without CRM credentials.
func (e *environment) loadConfig(ctx context.Context) (core.Config, *core.CfgxConfigProvider, error) {
	provider, err := e.configProvider()
	if err != nil {
		return core.Config{}, nil, err
	}
	cfg, err := provider.Load(ctx, core.DefaultConfig())
	if err != nil {
		return core.Config{}, nil, err
	}
	return cfg, provider, nil
}

type storage struct {
	client   *persistence.Client
	factory  *sqlstore.RepositoryFactory
	profiles core.ProfileStore
}

func (s *storage) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (e *environment) openStorage(ctx context.Context, cfg core.Config) (*storage, error) {
	client, err := sqlstore.OpenClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	var profiles core.ProfileStore = factory.ProfileStore()
	if ttl := cfg.ProfileCacheTTL(); ttl > 0 {
		cached, err := factory.CachedProfileStore(ttl)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		profiles = cached
	}
	core.LogInfo(ctx, gologger.For(e.loggerProvider(), gologger.ComponentStore), "profile store opened", map[string]any{
		"driver":    cfg.StorageDriver(),
		"cache_ttl": cfg.ProfileCacheTTL().String(),
	})
	return &storage{client: client, factory: factory, profiles: profiles}, nil
}

// session opens storage and builds a session over it. The caller closes the
// returned storage.
func (e *environment) session(ctx context.Context) (*crmquery.Session, *storage, error) {
	cfg, provider, err := e.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := e.openStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := []crmquery.Option{
		crmquery.WithConfigProvider(provider),
		crmquery.WithLoggerProvider(e.loggerProvider()),
		crmquery.WithMetricsRecorder(e.metricsRecorder()),
		crmquery.WithProfileStore(store.profiles),
		crmquery.WithResolutionRecorder(store.factory.ResolutionStore()),
	}
	if e.transport != nil {
		opts = append(opts, crmquery.WithTransport(e.transport))
	}
	session, err := crmquery.NewSession(ctx, crmquery.Config{}, opts...)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return session, store, nil
}

func (e *environment) printJSON(value any) error {
	encoder := json.NewEncoder(e.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
