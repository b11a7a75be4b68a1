// Package catalog holds the fixed read queries against the commerce objects of
// the CRM and runs them scoped to the caller's resolved account.
package catalog

import (
	"strings"

	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/soql"
)

const (
	ObjectOrder              = "ccrz__E_Order__c"
	ObjectInvoice            = "ccrz__E_Invoice__c"
	ObjectContactAddress     = "ccrz__E_ContactAddr__c"
	ObjectOrderItem          = "ccrz__E_OrderItem__c"
	ObjectTransactionPayment = "ccrz__E_TransactionPayment__c"
)

const (
	FieldOrderAccount   = "ccrz__Account__c"
	FieldInvoiceSoldTo  = "ccrz__SoldTo__c"
	FieldCreatedDate    = "CreatedDate"
	FieldOrderDate      = "ccrz__OrderDate__c"
	FieldSAPOrderNumber = "WP_SAP_Order_Number__c"
	FieldInvoiceID      = "ccrz__InvoiceId__c"
	FieldItemOrder      = "ccrz__Order__c"
	FieldPaymentOrder   = "ccrz__CCOrder__c"
	FieldInvoiceStatus  = "ccrz__Status__c"
	FieldSAPSalesOrder  = "WP_SAP_Sales_Order_Number__c"

	InvoiceStatusOpen = "Open"
)

var orderFields = []string{
	"WP_SAP_Order_Number__c",
	"ccrz__OrderName__c",
	"WP_PONumber__c",
	"ccrz__OrderDate__c",
	"ccrz__TotalAmount__c",
	"ccrz__OrderStatus__c",
	"Id",
	"ccrz__BillTo__c",
	"ccrz__BuyerPhone__c",
	"ccrz__BuyerFirstName__c",
	"ccrz__BuyerLastName__c",
	"ccrz__ShipMethod__c",
	"ccrz__Note__c",
	"ccrz__SubtotalAmount__c",
	"First_SKU__c",
	"ccrz__ShipTo__c",
}

var recentOrderFields = []string{"Id", "WP_PONumber__c", "ccrz__OrderDate__c"}

var recentInvoiceFields = []string{"ccrz__CCOrder__c", "Name", "WP_Tracking_Number__c"}

var orderViewItemFields = []string{
	"ccrz__Product_Name__c",
	"ccrz__Quantity__c",
	"ccrz__Price__c",
	"ccrz__ItemTotal__c",
	"ccrz__ExtSKU__c",
}

var paymentInvoiceFields = []string{
	"Name",
	"ccrz__InvoiceId__c",
	"WP_Billing_Date__c",
	"ccrz__DateDue__c",
	"ccrz__OriginalAmount__c",
	"ccrz__PaidAmount__c",
	"ccrz__Type__c",
	"ccrz__Status__c",
}

var downloadLinkFields = []string{"Invoice_URL__c", "WP_Tracking_Number__c"}

var orderPaymentInfoFields = []string{"ccrz__AccountNumber__c", "ccrz__PaymentType__c"}

// Policy carries the date window and row cap applied to list queries.
type Policy struct {
	LowerBound string
	RowLimit   int
}

func PolicyFromConfig(cfg core.Config) Policy {
	return Policy{LowerBound: cfg.DateLowerBound(), RowLimit: cfg.RowLimit()}
}

func (p Policy) lowerBound() string {
	if bound := strings.TrimSpace(p.LowerBound); bound != "" {
		return bound
	}
	return core.DefaultDateLowerBound + "T00:00:00Z"
}

func (p Policy) rowLimit() int {
	if p.RowLimit > 0 {
		return p.RowLimit
	}
	return core.DefaultRowLimit
}

// capLimit bounds a caller supplied limit by the row cap; non-positive values
// fall back to the cap.
func (p Policy) capLimit(limit int) int {
	ceiling := p.rowLimit()
	if limit <= 0 || limit > ceiling {
		return ceiling
	}
	return limit
}

func OrdersQuery(accountID string, p Policy) soql.Query {
	return soql.Select(orderFields...).
		From(ObjectOrder).
		Eq(FieldOrderAccount, accountID).
		Where(FieldCreatedDate, ">", soql.Literal(p.lowerBound())).
		OrderBy(FieldOrderDate, soql.Desc).
		Limit(p.rowLimit())
}

func SpecificOrderQuery(accountID string, orderID string) soql.Query {
	return soql.Select(orderFields...).
		From(ObjectOrder).
		Eq(FieldOrderAccount, accountID).
		Eq("Id", orderID)
}

func AddressQuery(addressID string, p Policy) soql.Query {
	return soql.SelectAll().
		From(ObjectContactAddress).
		Eq("Id", addressID).
		Limit(p.rowLimit())
}

func RecentOrdersQuery(accountID string, limit int, p Policy) soql.Query {
	return soql.Select(recentOrderFields...).
		From(ObjectOrder).
		Eq(FieldOrderAccount, accountID).
		Where(FieldCreatedDate, ">", soql.Literal(p.lowerBound())).
		OrderBy(FieldOrderDate, soql.Desc).
		Limit(p.capLimit(limit))
}

func RecentInvoicesQuery(accountID string, p Policy) soql.Query {
	return soql.Select(recentInvoiceFields...).
		From(ObjectInvoice).
		Eq(FieldInvoiceSoldTo, accountID).
		OrderBy(FieldCreatedDate, soql.Desc).
		Limit(p.rowLimit())
}

func OrderViewItemsQuery(orderID string, p Policy) soql.Query {
	return soql.Select(orderViewItemFields...).
		From(ObjectOrderItem).
		Eq(FieldItemOrder, orderID).
		Limit(p.rowLimit())
}

func InvoicesQuery(accountID string, p Policy) soql.Query {
	return soql.SelectAll().
		From(ObjectInvoice).
		Eq(FieldInvoiceSoldTo, accountID).
		Where(FieldCreatedDate, ">", soql.Literal(p.lowerBound())).
		OrderBy(FieldCreatedDate, soql.Desc).
		Limit(p.rowLimit())
}

// InvoiceByIDQuery backs both the specific invoice and specific payment views.
func InvoiceByIDQuery(accountID string, invoiceID string, p Policy) soql.Query {
	return soql.SelectAll().
		From(ObjectInvoice).
		Eq(FieldInvoiceSoldTo, accountID).
		Eq(FieldInvoiceID, invoiceID).
		OrderBy(FieldCreatedDate, soql.Desc).
		Limit(p.rowLimit())
}

func OrderNameQuery(accountID string, orderNumber string, p Policy) soql.Query {
	return soql.Select("Name").
		From(ObjectOrder).
		Eq(FieldOrderAccount, accountID).
		Eq(FieldSAPOrderNumber, orderNumber).
		OrderBy(FieldCreatedDate, soql.Desc).
		Limit(p.rowLimit())
}

func PaymentInvoicesQuery(accountID string, p Policy) soql.Query {
	return soql.Select(paymentInvoiceFields...).
		From(ObjectInvoice).
		Eq(FieldInvoiceSoldTo, accountID).
		Eq(FieldInvoiceStatus, InvoiceStatusOpen).
		Where(FieldCreatedDate, ">", soql.Literal(p.lowerBound())).
		Limit(p.rowLimit())
}

func OrderItemsQuery(orderID string, p Policy) soql.Query {
	return soql.SelectAll().
		From(ObjectOrderItem).
		Eq(FieldItemOrder, orderID).
		Limit(p.rowLimit())
}

func DownloadLinkQuery(accountID string, orderNumber string, p Policy) soql.Query {
	return soql.Select(downloadLinkFields...).
		From(ObjectInvoice).
		Eq(FieldInvoiceSoldTo, accountID).
		Eq(FieldSAPSalesOrder, orderNumber).
		Limit(p.rowLimit())
}

func OrderPaymentInfoQuery(orderID string, p Policy) soql.Query {
	return soql.Select(orderPaymentInfoFields...).
		From(ObjectTransactionPayment).
		Eq(FieldPaymentOrder, orderID).
		Limit(p.rowLimit())
}
