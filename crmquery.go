// Package crmquery is a client for a Salesforce style SOQL query API. A
// Session owns one bearer token, runs catalog queries scoped to a customer's
// CRM account and keeps the customer profile in sync with the account it
// resolves.
package crmquery

import "github.com/goliatone/go-crmquery/core"

type Config = core.Config

type Option = core.Option

type QueryResult = core.QueryResult

type Record = core.Record

type Resolution = core.Resolution

type ProfileStore = core.ProfileStore

type ResolutionRecorder = core.ResolutionRecorder

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorMapper        = core.WithErrorMapper
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithTransport          = core.WithTransport
	WithProfileStore       = core.WithProfileStore
	WithResolutionRecorder = core.WithResolutionRecorder
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}
