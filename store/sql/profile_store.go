package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-crmquery/core"
)

const maxAttributeValueLength = 255

var attributeNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ProfileStore keeps customer attributes in two tables: one row per customer
// keyed by the host's customer id, and one row per (customer, attribute).
type ProfileStore struct {
	db            *bun.DB
	customerRepo  repository.Repository[*customerRecord]
	attributeRepo repository.Repository[*profileAttributeRecord]
}

func NewProfileStore(db *bun.DB) (*ProfileStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	customerRepo := repository.NewRepository[*customerRecord](db, customerHandlers())
	if validator, ok := customerRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid customer repository wiring: %w", err)
		}
	}
	attributeRepo := repository.NewRepository[*profileAttributeRecord](db, profileAttributeHandlers())
	if validator, ok := attributeRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid profile attribute repository wiring: %w", err)
		}
	}
	return &ProfileStore{db: db, customerRepo: customerRepo, attributeRepo: attributeRepo}, nil
}

// GetAttribute returns "" for unknown customers and unset attributes.
func (s *ProfileStore) GetAttribute(ctx context.Context, customerID string, name string) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("sqlstore: profile store is not configured")
	}
	customerID = strings.TrimSpace(customerID)
	name = normalizeAttributeName(name)
	if customerID == "" || name == "" {
		return "", nil
	}

	record := &profileAttributeRecord{}
	err := s.db.NewSelect().
		Model(record).
		Join("JOIN crm_customers AS cc ON cc.id = ?TableAlias.customer_id").
		Where("cc.external_id = ?", customerID).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return record.Value, nil
}

// SetAttribute upserts one attribute, creating the customer row on first
// write. Invalid names or oversized values fail with core.ErrProfileValidation
// and unique constraint races with core.ErrProfileMismatch.
func (s *ProfileStore) SetAttribute(ctx context.Context, customerID string, name string, value string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: profile store is not configured")
	}
	customerID = strings.TrimSpace(customerID)
	name = normalizeAttributeName(name)
	if err := validateAttribute(customerID, name, value); err != nil {
		return err
	}
	now := time.Now().UTC()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		customer, err := findCustomerTx(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			customer = &customerRecord{
				ID:         uuid.NewString(),
				ExternalID: customerID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if _, err := s.customerRepo.CreateTx(ctx, tx, customer); err != nil {
				return err
			}
		}

		attribute, err := findAttributeTx(ctx, tx, customer.ID, name)
		if err != nil {
			return err
		}
		if attribute == nil {
			_, err := s.attributeRepo.CreateTx(ctx, tx, &profileAttributeRecord{
				ID:         uuid.NewString(),
				CustomerID: customer.ID,
				Name:       name,
				Value:      value,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			return err
		}
		attribute.Value = value
		attribute.UpdatedAt = now
		_, err = tx.NewUpdate().
			Model(attribute).
			Column("value", "updated_at").
			Where("id = ?", attribute.ID).
			Exec(ctx)
		return err
	})
	if err != nil && isUniqueViolation(err) {
		return mismatchError(customerID, name, err)
	}
	return err
}

// Customers lists the known customer ids in creation order.
func (s *ProfileStore) Customers(ctx context.Context) ([]string, error) {
	if s == nil || s.customerRepo == nil {
		return nil, fmt.Errorf("sqlstore: profile store is not configured")
	}
	records, _, err := s.customerRepo.List(ctx, repository.OrderBy("created_at ASC"))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.ExternalID)
	}
	return out, nil
}

// Attributes returns every attribute stored for a customer.
func (s *ProfileStore) Attributes(ctx context.Context, customerID string) (map[string]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: profile store is not configured")
	}
	customer, err := findCustomerTx(ctx, s.db, strings.TrimSpace(customerID))
	if err != nil || customer == nil {
		return map[string]string{}, err
	}
	records, _, err := s.attributeRepo.List(ctx,
		repository.SelectBy("customer_id", "=", customer.ID),
		repository.OrderBy("name ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(records))
	for _, record := range records {
		out[record.Name] = record.Value
	}
	return out, nil
}

func findCustomerTx(ctx context.Context, db bun.IDB, externalID string) (*customerRecord, error) {
	record := &customerRecord{}
	err := db.NewSelect().
		Model(record).
		Where("?TableAlias.external_id = ?", externalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func findAttributeTx(ctx context.Context, db bun.IDB, customerID string, name string) (*profileAttributeRecord, error) {
	record := &profileAttributeRecord{}
	err := db.NewSelect().
		Model(record).
		Where("?TableAlias.customer_id = ?", customerID).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func normalizeAttributeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateAttribute(customerID string, name string, value string) error {
	switch {
	case customerID == "":
		return validationError("customer_id", "customer id is required")
	case !attributeNamePattern.MatchString(name):
		return validationError("name", "attribute name must be lowercase snake case")
	case utf8.RuneCountInString(value) > maxAttributeValueLength:
		return validationError("value", fmt.Sprintf("attribute value exceeds %d characters", maxAttributeValueLength))
	}
	return nil
}

func validationError(field string, message string) error {
	return goerrors.Wrap(core.ErrProfileValidation, goerrors.CategoryValidation, "sqlstore: "+message).
		WithTextCode(core.ErrorPersistenceConflict).
		WithMetadata(map[string]any{"field": field})
}

func mismatchError(customerID string, name string, source error) error {
	return goerrors.Wrap(core.ErrProfileMismatch, goerrors.CategoryConflict, "sqlstore: attribute write conflicted").
		WithTextCode(core.ErrorPersistenceConflict).
		WithMetadata(map[string]any{
			"customer_id": customerID,
			"attribute":   name,
			"cause":       source.Error(),
		})
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

