package catalog

import (
	"context"
	"strings"

	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/soql"
)

type Config struct {
	CustomerID string
	Policy     Policy

	Runner   core.QueryRunner
	Accounts core.AccountResolver
	Logger   core.Logger
}

// Catalog runs the catalog queries for one customer. Account scoped
// operations resolve the account on every call and return an empty result,
// without touching the network, when none resolves.
type Catalog struct {
	customerID string
	policy     Policy
	runner     core.QueryRunner
	accounts   core.AccountResolver
	logger     core.Logger
}

func New(cfg Config) (*Catalog, error) {
	if cfg.Runner == nil {
		return nil, core.DependencyError("catalog: query runner is required")
	}
	if cfg.Accounts == nil {
		return nil, core.DependencyError("catalog: account resolver is required")
	}
	return &Catalog{
		customerID: strings.TrimSpace(cfg.CustomerID),
		policy:     cfg.Policy,
		runner:     cfg.Runner,
		accounts:   cfg.Accounts,
		logger:     cfg.Logger,
	}, nil
}

func (c *Catalog) CustomerID() string {
	return c.customerID
}

func (c *Catalog) Orders(ctx context.Context) (core.QueryResult, error) {
	return c.scoped(ctx, "orders", func(accountID string) soql.Query {
		return OrdersQuery(accountID, c.policy)
	})
}

func (c *Catalog) SpecificOrder(ctx context.Context, orderID string) (core.QueryResult, error) {
	return c.scoped(ctx, "specific_order", func(accountID string) soql.Query {
		return SpecificOrderQuery(accountID, orderID)
	})
}

func (c *Catalog) OrderAddress(ctx context.Context, addressID string) (core.QueryResult, error) {
	return c.run(ctx, AddressQuery(addressID, c.policy))
}

func (c *Catalog) ShipOrderAddress(ctx context.Context, addressID string) (core.QueryResult, error) {
	return c.run(ctx, AddressQuery(addressID, c.policy))
}

func (c *Catalog) BillingAddress(ctx context.Context, addressID string) (core.QueryResult, error) {
	return c.run(ctx, AddressQuery(addressID, c.policy))
}

func (c *Catalog) RecentOrders(ctx context.Context, limit int) (core.QueryResult, error) {
	return c.scoped(ctx, "recent_orders", func(accountID string) soql.Query {
		return RecentOrdersQuery(accountID, limit, c.policy)
	})
}

func (c *Catalog) RecentInvoices(ctx context.Context) (core.QueryResult, error) {
	return c.scoped(ctx, "recent_invoices", func(accountID string) soql.Query {
		return RecentInvoicesQuery(accountID, c.policy)
	})
}

func (c *Catalog) OrderViewItems(ctx context.Context, orderID string) (core.QueryResult, error) {
	return c.run(ctx, OrderViewItemsQuery(orderID, c.policy))
}

func (c *Catalog) Invoices(ctx context.Context) (core.QueryResult, error) {
	return c.scoped(ctx, "invoices", func(accountID string) soql.Query {
		return InvoicesQuery(accountID, c.policy)
	})
}

func (c *Catalog) SpecificInvoice(ctx context.Context, invoiceID string) (core.QueryResult, error) {
	return c.scoped(ctx, "specific_invoice", func(accountID string) soql.Query {
		return InvoiceByIDQuery(accountID, invoiceID, c.policy)
	})
}

func (c *Catalog) SpecificPayment(ctx context.Context, invoiceID string) (core.QueryResult, error) {
	return c.scoped(ctx, "specific_payment", func(accountID string) soql.Query {
		return InvoiceByIDQuery(accountID, invoiceID, c.policy)
	})
}

func (c *Catalog) OrderName(ctx context.Context, orderNumber string) (core.QueryResult, error) {
	return c.scoped(ctx, "order_name", func(accountID string) soql.Query {
		return OrderNameQuery(accountID, orderNumber, c.policy)
	})
}

func (c *Catalog) PaymentInvoices(ctx context.Context) (core.QueryResult, error) {
	return c.scoped(ctx, "payment_invoices", func(accountID string) soql.Query {
		return PaymentInvoicesQuery(accountID, c.policy)
	})
}

func (c *Catalog) OrderItems(ctx context.Context, orderID string) (core.QueryResult, error) {
	return c.run(ctx, OrderItemsQuery(orderID, c.policy))
}

func (c *Catalog) DownloadLink(ctx context.Context, orderNumber string) (core.QueryResult, error) {
	return c.scoped(ctx, "download_link", func(accountID string) soql.Query {
		return DownloadLinkQuery(accountID, orderNumber, c.policy)
	})
}

func (c *Catalog) OrderPaymentInfo(ctx context.Context, orderID string) (core.QueryResult, error) {
	return c.run(ctx, OrderPaymentInfoQuery(orderID, c.policy))
}

// EffectiveAccountNumber exposes the account resolution with its status.
func (c *Catalog) EffectiveAccountNumber(ctx context.Context) (core.Resolution, error) {
	return c.accounts.Resolve(ctx, c.customerID)
}

func (c *Catalog) scoped(ctx context.Context, operation string, build func(accountID string) soql.Query) (core.QueryResult, error) {
	resolution, err := c.accounts.Resolve(ctx, c.customerID)
	if err != nil {
		return core.QueryResult{}, err
	}
	if !resolution.Found() {
		core.LogInfo(ctx, c.logger, "crm catalog query skipped, no account", map[string]any{
			"operation":   operation,
			"customer_id": c.customerID,
		})
		return core.EmptyResult(), nil
	}
	return c.run(ctx, build(resolution.AccountID))
}

func (c *Catalog) run(ctx context.Context, query soql.Query) (core.QueryResult, error) {
	return c.runner.RunQuery(ctx, query.Params())
}
