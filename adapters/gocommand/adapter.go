// Package gocommand puts the crmquery queries on a go-command bus.
package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/query"
)

// ValidateMessageContract enforces Type() plus the optional Validate().
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// Queries is the set of handlers a session exposes on the bus.
type Queries struct {
	Catalog *query.CatalogQuery
	Resolve *query.ResolveAccountQuery
	Raw     *query.RawQuery
}

// Subscriptions releases every bus subscription taken by RegisterQueries.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

// RegisterQueries subscribes every non-nil handler. On failure the
// subscriptions taken so far are released.
func RegisterQueries(adapter *RegistryAdapter, queries Queries, runnerOpts ...runner.Option) (Subscriptions, error) {
	var subs Subscriptions
	register := func(subscribe func() (commanddispatcher.Subscription, error)) error {
		subscription, err := subscribe()
		if err != nil {
			return err
		}
		subs = append(subs, subscription)
		return nil
	}

	var err error
	if queries.Catalog != nil {
		err = register(func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery[query.CatalogQueryMessage, core.QueryResult](adapter, queries.Catalog, runnerOpts...)
		})
	}
	if err == nil && queries.Resolve != nil {
		err = register(func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery[query.ResolveAccountMessage, core.Resolution](adapter, queries.Resolve, runnerOpts...)
		})
	}
	if err == nil && queries.Raw != nil {
		err = register(func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery[query.RawQueryMessage, core.QueryResult](adapter, queries.Raw, runnerOpts...)
		})
	}
	if err != nil {
		subs.Unsubscribe()
		return nil, err
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("gocommand: no queries to register")
	}
	return subs, nil
}
