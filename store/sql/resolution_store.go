package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-crmquery/core"
)

const defaultResolutionPageSize = 25

type ResolutionEntry struct {
	ID         string
	CustomerID string
	AccountID  string
	Status     core.ResolutionStatus
	Error      string
	CreatedAt  time.Time
}

type ResolutionFilter struct {
	CustomerID string
	Status     core.ResolutionStatus
	Since      *time.Time
	Page       int
	PerPage    int
}

type ResolutionPage struct {
	Items   []ResolutionEntry
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

// ResolutionStore is the audit trail of account lookups that reached the CRM.
type ResolutionStore struct {
	db   *bun.DB
	repo repository.Repository[*resolutionRecord]
}

func NewResolutionStore(db *bun.DB) (*ResolutionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*resolutionRecord](db, resolutionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid resolution repository wiring: %w", err)
		}
	}
	return &ResolutionStore{db: db, repo: repo}, nil
}

func (s *ResolutionStore) RecordResolution(ctx context.Context, customerID string, resolution core.Resolution) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: resolution store is not configured")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return fmt.Errorf("sqlstore: resolution customer id is required")
	}
	status := strings.TrimSpace(string(resolution.Status))
	if status == "" {
		status = string(core.ResolutionNone)
	}
	message := ""
	if resolution.Err != nil {
		message = resolution.Err.Error()
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		customer, err := findCustomerTx(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			customer = &customerRecord{ID: uuid.NewString(), ExternalID: customerID, CreatedAt: now, UpdatedAt: now}
			if _, err := tx.NewInsert().Model(customer).Exec(ctx); err != nil {
				return err
			}
		}
		_, err = s.repo.CreateTx(ctx, tx, &resolutionRecord{
			ID:         uuid.NewString(),
			CustomerID: customer.ID,
			AccountID:  strings.TrimSpace(resolution.AccountID),
			Status:     status,
			Error:      message,
			CreatedAt:  now,
		})
		return err
	})
}

func (s *ResolutionStore) List(ctx context.Context, filter ResolutionFilter) (ResolutionPage, error) {
	if s == nil || s.repo == nil {
		return ResolutionPage{}, fmt.Errorf("sqlstore: resolution store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = defaultResolutionPageSize
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if customerID := strings.TrimSpace(filter.CustomerID); customerID != "" {
		customer, err := findCustomerTx(ctx, s.db, customerID)
		if err != nil {
			return ResolutionPage{}, err
		}
		if customer == nil {
			return ResolutionPage{Items: []ResolutionEntry{}, Page: page, PerPage: perPage}, nil
		}
		selectors = append(selectors, repository.SelectBy("customer_id", "=", customer.ID))
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", status))
	}
	if filter.Since != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", ">=", filter.Since.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return ResolutionPage{}, err
	}
	externalIDs, err := s.externalIDs(ctx, records)
	if err != nil {
		return ResolutionPage{}, err
	}
	items := make([]ResolutionEntry, 0, len(records))
	for _, record := range records {
		items = append(items, ResolutionEntry{
			ID:         record.ID,
			CustomerID: externalIDs[record.CustomerID],
			AccountID:  record.AccountID,
			Status:     core.ResolutionStatus(record.Status),
			Error:      record.Error,
			CreatedAt:  record.CreatedAt,
		})
	}
	return ResolutionPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

func (s *ResolutionStore) externalIDs(ctx context.Context, records []*resolutionRecord) (map[string]string, error) {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.CustomerID)
	}
	out := map[string]string{}
	if len(ids) == 0 {
		return out, nil
	}
	var customers []customerRecord
	if err := s.db.NewSelect().
		Model(&customers).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Scan(ctx); err != nil {
		return nil, err
	}
	for _, customer := range customers {
		out[customer.ID] = customer.ExternalID
	}
	return out, nil
}

// Prune deletes audit rows older than ttl and reports how many went.
func (s *ResolutionStore) Prune(ctx context.Context, ttl time.Duration) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: resolution store is not configured")
	}
	if ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.NewDelete().
		Model((*resolutionRecord)(nil)).
		Where("created_at < ?", time.Now().UTC().Add(-ttl)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

