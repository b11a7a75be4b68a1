package query

import (
	"strings"

	"github.com/goliatone/go-crmquery/soql"
)

const (
	TypeCatalogQuery   = "crmquery.query.catalog"
	TypeResolveAccount = "crmquery.query.account.resolve"
	TypeRawQuery       = "crmquery.query.raw"
)

type Operation string

const (
	OperationOrders           Operation = "orders"
	OperationSpecificOrder    Operation = "specific_order"
	OperationOrderAddress     Operation = "order_address"
	OperationShipOrderAddress Operation = "ship_order_address"
	OperationBillingAddress   Operation = "billing_address"
	OperationRecentOrders     Operation = "recent_orders"
	OperationRecentInvoices   Operation = "recent_invoices"
	OperationOrderViewItems   Operation = "order_view_items"
	OperationInvoices         Operation = "invoices"
	OperationSpecificInvoice  Operation = "specific_invoice"
	OperationSpecificPayment  Operation = "specific_payment"
	OperationOrderName        Operation = "order_name"
	OperationPaymentInvoices  Operation = "payment_invoices"
	OperationOrderItems       Operation = "order_items"
	OperationDownloadLink     Operation = "download_link"
	OperationOrderPaymentInfo Operation = "order_payment_info"
)

// operationNeedsID lists every operation and whether it takes a record id.
var operationNeedsID = map[Operation]bool{
	OperationOrders:           false,
	OperationSpecificOrder:    true,
	OperationOrderAddress:     true,
	OperationShipOrderAddress: true,
	OperationBillingAddress:   true,
	OperationRecentOrders:     false,
	OperationRecentInvoices:   false,
	OperationOrderViewItems:   true,
	OperationInvoices:         false,
	OperationSpecificInvoice:  true,
	OperationSpecificPayment:  true,
	OperationOrderName:        true,
	OperationPaymentInvoices:  false,
	OperationOrderItems:       true,
	OperationDownloadLink:     true,
	OperationOrderPaymentInfo: true,
}

// Operations returns the catalog operations known to the bus.
func Operations() []Operation {
	out := make([]Operation, 0, len(operationNeedsID))
	for operation := range operationNeedsID {
		out = append(out, operation)
	}
	return out
}

func ParseOperation(value string) (Operation, bool) {
	operation := Operation(strings.ToLower(strings.TrimSpace(value)))
	_, ok := operationNeedsID[operation]
	return operation, ok
}

// CatalogQueryMessage runs one catalog operation for a customer. ID carries
// the order, address, invoice or SAP order number the operation targets.
type CatalogQueryMessage struct {
	CustomerID string
	Operation  Operation
	ID         string
	Limit      int
}

func (CatalogQueryMessage) Type() string { return TypeCatalogQuery }

func (m CatalogQueryMessage) Validate() error {
	needsID, ok := operationNeedsID[m.Operation]
	if !ok {
		return queryValidationError("operation", "unknown catalog operation")
	}
	if needsID && strings.TrimSpace(m.ID) == "" {
		return queryValidationError("id", "operation requires a record id")
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}

// ResolveAccountMessage resolves the account of a customer. With Require set
// an unresolved account is an ErrNoAccount error instead of a none status.
type ResolveAccountMessage struct {
	CustomerID string
	Require    bool
}

func (ResolveAccountMessage) Type() string { return TypeResolveAccount }

func (m ResolveAccountMessage) Validate() error {
	if strings.TrimSpace(m.CustomerID) == "" {
		return queryValidationError("customer_id", "customer id is required")
	}
	return nil
}

// RawQueryMessage runs pre-built query params ("?q=...") as is.
type RawQueryMessage struct {
	Params string
}

func (RawQueryMessage) Type() string { return TypeRawQuery }

func (m RawQueryMessage) Validate() error {
	if strings.TrimSpace(m.Params) == "" {
		return queryValidationError("params", "query params are required")
	}
	if _, err := soql.ParseParams(m.Params); err != nil {
		return queryWrapValidation(err, "query: params do not hold a select statement")
	}
	return nil
}
