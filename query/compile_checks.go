package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-crmquery/core"
)

var (
	_ gocmd.Querier[CatalogQueryMessage, core.QueryResult]  = (*CatalogQuery)(nil)
	_ gocmd.Querier[ResolveAccountMessage, core.Resolution] = (*ResolveAccountQuery)(nil)
	_ gocmd.Querier[RawQueryMessage, core.QueryResult]      = (*RawQuery)(nil)
)
