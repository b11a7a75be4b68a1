package query

import (
	"context"

	"github.com/goliatone/go-crmquery/core"
)

// CatalogReader is the customer bound catalog surface.
type CatalogReader interface {
	Orders(ctx context.Context) (core.QueryResult, error)
	SpecificOrder(ctx context.Context, orderID string) (core.QueryResult, error)
	OrderAddress(ctx context.Context, addressID string) (core.QueryResult, error)
	ShipOrderAddress(ctx context.Context, addressID string) (core.QueryResult, error)
	BillingAddress(ctx context.Context, addressID string) (core.QueryResult, error)
	RecentOrders(ctx context.Context, limit int) (core.QueryResult, error)
	RecentInvoices(ctx context.Context) (core.QueryResult, error)
	OrderViewItems(ctx context.Context, orderID string) (core.QueryResult, error)
	Invoices(ctx context.Context) (core.QueryResult, error)
	SpecificInvoice(ctx context.Context, invoiceID string) (core.QueryResult, error)
	SpecificPayment(ctx context.Context, invoiceID string) (core.QueryResult, error)
	OrderName(ctx context.Context, orderNumber string) (core.QueryResult, error)
	PaymentInvoices(ctx context.Context) (core.QueryResult, error)
	OrderItems(ctx context.Context, orderID string) (core.QueryResult, error)
	DownloadLink(ctx context.Context, orderNumber string) (core.QueryResult, error)
	OrderPaymentInfo(ctx context.Context, orderID string) (core.QueryResult, error)
}

type CatalogSource interface {
	ForCustomer(ctx context.Context, customerID string) (CatalogReader, error)
}

type CatalogQuery struct {
	source CatalogSource
}

func NewCatalogQuery(source CatalogSource) *CatalogQuery {
	return &CatalogQuery{source: source}
}

func (q *CatalogQuery) Query(ctx context.Context, msg CatalogQueryMessage) (core.QueryResult, error) {
	if q == nil || q.source == nil {
		return core.QueryResult{}, queryDependencyError("query: catalog source is required")
	}
	if err := msg.Validate(); err != nil {
		return core.QueryResult{}, err
	}
	reader, err := q.source.ForCustomer(ctx, msg.CustomerID)
	if err != nil {
		return core.QueryResult{}, err
	}

	switch msg.Operation {
	case OperationOrders:
		return reader.Orders(ctx)
	case OperationSpecificOrder:
		return reader.SpecificOrder(ctx, msg.ID)
	case OperationOrderAddress:
		return reader.OrderAddress(ctx, msg.ID)
	case OperationShipOrderAddress:
		return reader.ShipOrderAddress(ctx, msg.ID)
	case OperationBillingAddress:
		return reader.BillingAddress(ctx, msg.ID)
	case OperationRecentOrders:
		return reader.RecentOrders(ctx, msg.Limit)
	case OperationRecentInvoices:
		return reader.RecentInvoices(ctx)
	case OperationOrderViewItems:
		return reader.OrderViewItems(ctx, msg.ID)
	case OperationInvoices:
		return reader.Invoices(ctx)
	case OperationSpecificInvoice:
		return reader.SpecificInvoice(ctx, msg.ID)
	case OperationSpecificPayment:
		return reader.SpecificPayment(ctx, msg.ID)
	case OperationOrderName:
		return reader.OrderName(ctx, msg.ID)
	case OperationPaymentInvoices:
		return reader.PaymentInvoices(ctx)
	case OperationOrderItems:
		return reader.OrderItems(ctx, msg.ID)
	case OperationDownloadLink:
		return reader.DownloadLink(ctx, msg.ID)
	case OperationOrderPaymentInfo:
		return reader.OrderPaymentInfo(ctx, msg.ID)
	default:
		return core.QueryResult{}, queryValidationError("operation", "unknown catalog operation")
	}
}

type ResolveAccountQuery struct {
	resolver core.AccountResolver
}

func NewResolveAccountQuery(resolver core.AccountResolver) *ResolveAccountQuery {
	return &ResolveAccountQuery{resolver: resolver}
}

func (q *ResolveAccountQuery) Query(ctx context.Context, msg ResolveAccountMessage) (core.Resolution, error) {
	if q == nil || q.resolver == nil {
		return core.Resolution{}, queryDependencyError("query: account resolver is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Resolution{}, err
	}
	resolution, err := q.resolver.Resolve(ctx, msg.CustomerID)
	if err != nil {
		return core.Resolution{}, err
	}
	if msg.Require && !resolution.Found() {
		return resolution, core.NoAccountError(msg.CustomerID)
	}
	return resolution, nil
}

type RawQuery struct {
	runner core.QueryRunner
}

func NewRawQuery(runner core.QueryRunner) *RawQuery {
	return &RawQuery{runner: runner}
}

func (q *RawQuery) Query(ctx context.Context, msg RawQueryMessage) (core.QueryResult, error) {
	if q == nil || q.runner == nil {
		return core.QueryResult{}, queryDependencyError("query: query runner is required")
	}
	if err := msg.Validate(); err != nil {
		return core.QueryResult{}, err
	}
	return q.runner.RunQuery(ctx, msg.Params)
}
