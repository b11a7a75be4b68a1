package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "CRMQUERY"

var (
	stringKeys = []string{
		"service_name",
		"auth.endpoint",
		"auth.client_id",
		"auth.client_secret",
		"auth.username",
		"auth.password",
		"query.endpoint",
		"query.date_range_lower_bound",
		"profile.account_attribute",
		"profile.company_attribute",
		"storage.driver",
		"storage.dsn",
	}
	intKeys   = []string{"query.row_limit", "storage.cache_ttl_seconds"}
	boolKeys  = []string{"query.allow_empty_token", "logging.enabled", "storage.debug"}
	floatKeys = []string{"query.requests_per_second"}
)

// viperLoader feeds the config file, CRMQUERY_* environment and bound flags
// into the cfgx provider as a nested raw map. Only keys set somewhere are
// emitted so defaults stay with core.DefaultConfig.
type viperLoader struct {
	v *viper.Viper
}

func newViperLoader(v *viper.Viper, file string) (*viperLoader, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, keys := range [][]string{stringKeys, intKeys, boolKeys, floatKeys} {
		for _, key := range keys {
			if err := v.BindEnv(key); err != nil {
				return nil, fmt.Errorf("bind env %s: %w", key, err)
			}
		}
	}
	if file = strings.TrimSpace(file); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return &viperLoader{v: v}, nil
}

func (l *viperLoader) LoadRaw(context.Context) (map[string]any, error) {
	raw := map[string]any{}
	for _, key := range stringKeys {
		if l.v.IsSet(key) {
			setPath(raw, key, l.v.GetString(key))
		}
	}
	for _, key := range intKeys {
		if l.v.IsSet(key) {
			setPath(raw, key, l.v.GetInt(key))
		}
	}
	for _, key := range boolKeys {
		if l.v.IsSet(key) {
			setPath(raw, key, l.v.GetBool(key))
		}
	}
	for _, key := range floatKeys {
		if l.v.IsSet(key) {
			setPath(raw, key, l.v.GetFloat64(key))
		}
	}
	return raw, nil
}

func setPath(target map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	node := target
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value
}
