package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// Dependencies is the resolved collaborator set a session is built from.
type Dependencies struct {
	Config          Config
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	Transport       TransportAdapter
	ProfileStore    ProfileStore
	Recorder        ResolutionRecorder
}

type dependencyBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	transport       TransportAdapter
	profileStore    ProfileStore
	recorder        ResolutionRecorder
}

type Option func(*dependencyBuilder)

func WithLogger(logger Logger) Option {
	return func(b *dependencyBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *dependencyBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *dependencyBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *dependencyBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *dependencyBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *dependencyBuilder) {
		b.optionsResolver = resolver
	}
}

func WithTransport(transport TransportAdapter) Option {
	return func(b *dependencyBuilder) {
		b.transport = transport
	}
}

func WithProfileStore(store ProfileStore) Option {
	return func(b *dependencyBuilder) {
		b.profileStore = store
	}
}

// WithResolutionRecorder audits account lookups that reached the CRM.
func WithResolutionRecorder(recorder ResolutionRecorder) Option {
	return func(b *dependencyBuilder) {
		b.recorder = recorder
	}
}

// ResolveDependencies applies options over the defaults, loads configuration
// through the config provider and merges defaults, loaded and runtime layers.
func ResolveDependencies(ctx context.Context, runtime Config, options ...Option) (Dependencies, error) {
	builder := defaultDependencyBuilder(runtime)
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&builder)
	}

	provider, logger := glog.Resolve(DefaultServiceName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = MapError
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(ctx, defaults)
	if err != nil {
		return Dependencies{}, fmt.Errorf("core: load config: %w", err)
	}
	resolved, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return Dependencies{}, err
	}

	return Dependencies{
		Config:          resolved,
		Logger:          logger,
		LoggerProvider:  provider,
		MetricsRecorder: builder.metricsRecorder,
		ErrorMapper:     builder.errorMapper,
		ConfigProvider:  builder.configProvider,
		OptionsResolver: builder.optionsResolver,
		Transport:       builder.transport,
		ProfileStore:    builder.profileStore,
		Recorder:        builder.recorder,
	}, nil
}

func defaultDependencyBuilder(runtime Config) dependencyBuilder {
	return dependencyBuilder{
		runtimeConfig:   runtime,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     MapError,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

// Load builds a Config from the raw loader values. Validation is deferred to
// the options resolver since a partial file is completed by runtime values.
func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	putString(layer, "service_name", cfg.ServiceName, includeZero)

	auth := map[string]any{}
	putString(auth, "endpoint", cfg.Auth.Endpoint, includeZero)
	putString(auth, "client_id", cfg.Auth.ClientID, includeZero)
	putString(auth, "client_secret", cfg.Auth.ClientSecret, includeZero)
	putString(auth, "username", cfg.Auth.Username, includeZero)
	putString(auth, "password", cfg.Auth.Password, includeZero)
	if len(auth) > 0 {
		layer["auth"] = auth
	}

	query := map[string]any{}
	putString(query, "endpoint", cfg.Query.Endpoint, includeZero)
	putString(query, "date_range_lower_bound", cfg.Query.DateRangeLowerBound, includeZero)
	if includeZero || cfg.Query.RowLimit > 0 {
		query["row_limit"] = cfg.Query.RowLimit
	}
	if includeZero || cfg.Query.AllowEmptyToken {
		query["allow_empty_token"] = cfg.Query.AllowEmptyToken
	}
	if includeZero || cfg.Query.RequestsPerSecond > 0 {
		query["requests_per_second"] = cfg.Query.RequestsPerSecond
	}
	if len(query) > 0 {
		layer["query"] = query
	}

	if includeZero || cfg.Logging.Enabled {
		layer["logging"] = map[string]any{"enabled": cfg.Logging.Enabled}
	}

	profile := map[string]any{}
	putString(profile, "account_attribute", cfg.Profile.AccountAttribute, includeZero)
	putString(profile, "company_attribute", cfg.Profile.CompanyAttribute, includeZero)
	if len(profile) > 0 {
		layer["profile"] = profile
	}

	storage := map[string]any{}
	putString(storage, "driver", cfg.Storage.Driver, includeZero)
	putString(storage, "dsn", cfg.Storage.DSN, includeZero)
	if includeZero || cfg.Storage.Debug {
		storage["debug"] = cfg.Storage.Debug
	}
	if includeZero || cfg.Storage.CacheTTLSeconds > 0 {
		storage["cache_ttl_seconds"] = cfg.Storage.CacheTTLSeconds
	}
	if len(storage) > 0 {
		layer["storage"] = storage
	}
	return layer
}

func putString(layer map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		layer[key] = value
	}
}
