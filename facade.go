package crmquery

import (
	"fmt"

	"github.com/goliatone/go-command/runner"

	"github.com/goliatone/go-crmquery/adapters/gocommand"
	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/query"
)

// QueryService is the surface the facade puts on the bus. *Session
// implements it.
type QueryService interface {
	query.CatalogSource
	core.AccountResolver
	core.QueryRunner
}

type Facade struct {
	service       QueryService
	queries       gocommand.Queries
	runnerOptions []runner.Option
	withoutRaw    bool
}

type FacadeOption func(*Facade)

func WithRunnerOptions(opts ...runner.Option) FacadeOption {
	return func(f *Facade) {
		f.runnerOptions = append(f.runnerOptions, opts...)
	}
}

// WithoutRawQuery keeps free form SOQL off the bus.
func WithoutRawQuery() FacadeOption {
	return func(f *Facade) {
		f.withoutRaw = true
	}
}

func NewFacade(service QueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("crmquery: query service is required")
	}
	facade := &Facade{service: service}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(facade)
	}
	facade.queries = gocommand.Queries{
		Catalog: query.NewCatalogQuery(service),
		Resolve: query.NewResolveAccountQuery(service),
	}
	if !facade.withoutRaw {
		facade.queries.Raw = query.NewRawQuery(service)
	}
	return facade, nil
}

func (f *Facade) Queries() gocommand.Queries {
	if f == nil {
		return gocommand.Queries{}
	}
	return f.queries
}

func (f *Facade) Service() QueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// Register subscribes the facade queries on the dispatcher and registers them
// with the adapter. The host still calls adapter.Initialize once every module
// has registered.
func (f *Facade) Register(adapter *gocommand.RegistryAdapter) (gocommand.Subscriptions, error) {
	if f == nil {
		return nil, fmt.Errorf("crmquery: facade is nil")
	}
	if adapter == nil {
		return nil, fmt.Errorf("crmquery: registry adapter is required")
	}
	return gocommand.RegisterQueries(adapter, f.queries, f.runnerOptions...)
}
