package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type customerRecord struct {
	bun.BaseModel `bun:"table:crm_customers,alias:cc"`

	ID         string    `bun:"id,pk"`
	ExternalID string    `bun:"external_id,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type profileAttributeRecord struct {
	bun.BaseModel `bun:"table:crm_customer_attributes,alias:cca"`

	ID         string    `bun:"id,pk"`
	CustomerID string    `bun:"customer_id,notnull"`
	Name       string    `bun:"name,notnull"`
	Value      string    `bun:"value,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type resolutionRecord struct {
	bun.BaseModel `bun:"table:crm_account_resolutions,alias:car"`

	ID         string    `bun:"id,pk"`
	CustomerID string    `bun:"customer_id,notnull"`
	AccountID  string    `bun:"account_id,notnull"`
	Status     string    `bun:"status,notnull"`
	Error      string    `bun:"error,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
