package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultServiceName      = "crmquery"
	DefaultRowLimit         = 200
	DefaultDateLowerBound   = "2022-01-01"
	DefaultAccountAttribute = "effective_account_number"
	DefaultCompanyAttribute = "sap_company_id"
	DefaultStorageDriver    = "sqlite3"
	DefaultStorageDSN       = "file:crmquery.db?cache=shared&_foreign_keys=on"

	dateLowerBoundLayout = "2006-01-02"
)

type AuthConfig struct {
	Endpoint     string `koanf:"endpoint" mapstructure:"endpoint"`
	ClientID     string `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string `koanf:"client_secret" mapstructure:"client_secret"`
	Username     string `koanf:"username" mapstructure:"username"`
	Password     string `koanf:"password" mapstructure:"password"`
}

type QueryConfig struct {
	Endpoint            string `koanf:"endpoint" mapstructure:"endpoint"`
	DateRangeLowerBound string `koanf:"date_range_lower_bound" mapstructure:"date_range_lower_bound"`
	RowLimit            int    `koanf:"row_limit" mapstructure:"row_limit"`
	AllowEmptyToken     bool   `koanf:"allow_empty_token" mapstructure:"allow_empty_token"`
	// RequestsPerSecond throttles every call to the CRM; zero disables it.
	RequestsPerSecond float64 `koanf:"requests_per_second" mapstructure:"requests_per_second"`
}

type LoggingConfig struct {
	Enabled bool `koanf:"enabled" mapstructure:"enabled"`
}

type ProfileConfig struct {
	AccountAttribute string `koanf:"account_attribute" mapstructure:"account_attribute"`
	CompanyAttribute string `koanf:"company_attribute" mapstructure:"company_attribute"`
}

// StorageConfig locates the SQL profile store used by hosts without their
// own customer store.
type StorageConfig struct {
	Driver          string `koanf:"driver" mapstructure:"driver"`
	DSN             string `koanf:"dsn" mapstructure:"dsn"`
	Debug           bool   `koanf:"debug" mapstructure:"debug"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	Auth        AuthConfig    `koanf:"auth" mapstructure:"auth"`
	Query       QueryConfig   `koanf:"query" mapstructure:"query"`
	Logging     LoggingConfig `koanf:"logging" mapstructure:"logging"`
	Profile     ProfileConfig `koanf:"profile" mapstructure:"profile"`
	Storage     StorageConfig `koanf:"storage" mapstructure:"storage"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: DefaultServiceName,
		Query: QueryConfig{
			RowLimit: DefaultRowLimit,
		},
		Profile: ProfileConfig{
			AccountAttribute: DefaultAccountAttribute,
			CompanyAttribute: DefaultCompanyAttribute,
		},
		Storage: StorageConfig{
			Driver: DefaultStorageDriver,
			DSN:    DefaultStorageDSN,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if err := validateEndpoint("auth.endpoint", c.Auth.Endpoint); err != nil {
		return err
	}
	if err := validateEndpoint("query.endpoint", c.Query.Endpoint); err != nil {
		return err
	}
	if strings.TrimSpace(c.Auth.ClientID) == "" {
		return fmt.Errorf("core: auth.client_id is required")
	}
	if strings.TrimSpace(c.Auth.Username) == "" {
		return fmt.Errorf("core: auth.username is required")
	}
	if c.Query.RowLimit < 0 {
		return fmt.Errorf("core: query.row_limit must be >= 0")
	}
	if c.Query.RequestsPerSecond < 0 {
		return fmt.Errorf("core: query.requests_per_second must be >= 0")
	}
	if raw := strings.TrimSpace(c.Query.DateRangeLowerBound); raw != "" {
		if _, err := time.Parse(dateLowerBoundLayout, raw); err != nil {
			return fmt.Errorf("core: query.date_range_lower_bound must be YYYY-MM-DD: %w", err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "sqlite", "sqlite3", "postgres":
	default:
		return fmt.Errorf("core: storage.driver %q is not supported", c.Storage.Driver)
	}
	if c.Storage.CacheTTLSeconds < 0 {
		return fmt.Errorf("core: storage.cache_ttl_seconds must be >= 0")
	}
	return nil
}

// RowLimit returns the configured row cap, falling back to DefaultRowLimit.
func (c Config) RowLimit() int {
	if c.Query.RowLimit > 0 {
		return c.Query.RowLimit
	}
	return DefaultRowLimit
}

// DateLowerBound returns the "recent data" cutoff as a SOQL datetime literal.
func (c Config) DateLowerBound() string {
	raw := strings.TrimSpace(c.Query.DateRangeLowerBound)
	if raw == "" {
		raw = DefaultDateLowerBound
	}
	return raw + "T00:00:00Z"
}

func (c Config) AccountAttribute() string {
	return firstNonEmpty(c.Profile.AccountAttribute, DefaultAccountAttribute)
}

func (c Config) CompanyAttribute() string {
	return firstNonEmpty(c.Profile.CompanyAttribute, DefaultCompanyAttribute)
}

func (c Config) StorageDriver() string {
	return firstNonEmpty(strings.ToLower(c.Storage.Driver), DefaultStorageDriver)
}

func (c Config) StorageDSN() string {
	return firstNonEmpty(c.Storage.DSN, DefaultStorageDSN)
}

// ProfileCacheTTL is zero when profile reads should go straight to storage.
func (c Config) ProfileCacheTTL() time.Duration {
	if c.Storage.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Storage.CacheTTLSeconds) * time.Second
}

func validateEndpoint(name string, raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("core: %s is required", name)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("core: %s is invalid: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("core: %s must be an http(s) url", name)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
