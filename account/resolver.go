// Package account resolves the CRM account identifier of a customer, reading
// it from the customer profile first and falling back to a remote lookup by
// company id.
package account

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/soql"
)

const (
	LookupObject       = "ccrz__E_Order__c"
	LookupAccountField = "ccrz__Account__c"
	LookupCompanyField = "WP_Account_Number__c"
)

// LookupQuery finds the account of any order placed under companyID.
func LookupQuery(companyID string) soql.Query {
	return soql.Select(LookupAccountField).
		From(LookupObject).
		Eq(LookupCompanyField, companyID).
		Limit(1)
}

type Config struct {
	AccountAttribute string
	CompanyAttribute string

	Runner   core.QueryRunner
	Store    core.ProfileStore
	Recorder core.ResolutionRecorder
	Logger   core.Logger
}

// Resolver has no memory of its own: every call re-reads the profile store.
type Resolver struct {
	accountAttribute string
	companyAttribute string
	runner           core.QueryRunner
	store            core.ProfileStore
	recorder         core.ResolutionRecorder
	logger           core.Logger
}

func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Runner == nil {
		return nil, core.DependencyError("account: query runner is required")
	}
	if cfg.Store == nil {
		return nil, core.DependencyError("account: profile store is required")
	}
	accountAttribute := strings.TrimSpace(cfg.AccountAttribute)
	if accountAttribute == "" {
		accountAttribute = core.DefaultAccountAttribute
	}
	companyAttribute := strings.TrimSpace(cfg.CompanyAttribute)
	if companyAttribute == "" {
		companyAttribute = core.DefaultCompanyAttribute
	}
	return &Resolver{
		accountAttribute: accountAttribute,
		companyAttribute: companyAttribute,
		runner:           cfg.Runner,
		store:            cfg.Store,
		recorder:         cfg.Recorder,
		logger:           cfg.Logger,
	}, nil
}

func (r *Resolver) Resolve(ctx context.Context, customerID string) (core.Resolution, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return core.Resolution{Status: core.ResolutionNone}, nil
	}

	current, err := r.store.GetAttribute(ctx, customerID, r.accountAttribute)
	if err != nil {
		return core.Resolution{}, r.wrapStoreError(err, customerID, "read account attribute")
	}
	current = strings.TrimSpace(current)
	if current != "" {
		return core.Resolution{AccountID: current, Status: core.ResolutionCached}, nil
	}

	companyID, err := r.store.GetAttribute(ctx, customerID, r.companyAttribute)
	if err != nil {
		return core.Resolution{}, r.wrapStoreError(err, customerID, "read company attribute")
	}
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return core.Resolution{AccountID: current, Status: core.ResolutionNone}, nil
	}

	result, err := r.runner.RunQuery(ctx, LookupQuery(companyID).Params())
	if err != nil {
		return core.Resolution{}, err
	}
	if !result.HasRecords() {
		return r.audit(ctx, customerID, core.Resolution{AccountID: current, Status: core.ResolutionNone}), nil
	}
	accountID := result.Records()[0].String(LookupAccountField)
	if accountID == "" {
		return r.audit(ctx, customerID, core.Resolution{AccountID: current, Status: core.ResolutionNone}), nil
	}

	if err := r.store.SetAttribute(ctx, customerID, r.accountAttribute, accountID); err != nil {
		if !core.IsPersistenceConflict(err) {
			return core.Resolution{}, r.wrapStoreError(err, customerID, "persist account attribute")
		}
		conflict := core.PersistenceConflictError(err, map[string]any{
			"customer_id": customerID,
			"attribute":   r.accountAttribute,
		})
		core.LogWarn(ctx, r.logger, "crm account number resolved but not persisted", map[string]any{
			"customer_id": customerID,
			"account_id":  accountID,
			"error":       err.Error(),
		})
		return r.audit(ctx, customerID, core.Resolution{
			AccountID: accountID,
			Status:    core.ResolutionResolvedNotPersisted,
			Err:       conflict,
		}), nil
	}
	return r.audit(ctx, customerID, core.Resolution{AccountID: accountID, Status: core.ResolutionResolved}), nil
}

func (r *Resolver) audit(ctx context.Context, customerID string, resolution core.Resolution) core.Resolution {
	if r.recorder == nil {
		return resolution
	}
	if err := r.recorder.RecordResolution(ctx, customerID, resolution); err != nil {
		core.LogWarn(ctx, r.logger, "crm account resolution audit failed", map[string]any{
			"customer_id": customerID,
			"status":      string(resolution.Status),
			"error":       err.Error(),
		})
	}
	return resolution
}

// AccountID is Resolve without the status, for callers that only scope
// queries.
func (r *Resolver) AccountID(ctx context.Context, customerID string) (string, error) {
	resolution, err := r.Resolve(ctx, customerID)
	if err != nil {
		return "", err
	}
	return resolution.AccountID, nil
}

func (r *Resolver) wrapStoreError(err error, customerID string, action string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "account: "+action).
		WithTextCode(core.ErrorInternal).
		WithMetadata(map[string]any{"customer_id": customerID})
}

var _ core.AccountResolver = (*Resolver)(nil)
