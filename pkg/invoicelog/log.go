// Package invoicelog exposes the immutable event history of invoices.
package invoicelog

import (
	"context"
	"net/url"

	"github.com/coachpo/starkbank/pkg/invoice"
	"github.com/coachpo/starkbank/pkg/resource"
	"github.com/coachpo/starkbank/pkg/rest"
)

// Log records one invoice state transition together with the invoice as it
// was when the event happened.
type Log struct {
	resource.Resource
	Type    string            `json:"type"`
	Errors  []string          `json:"errors"`
	Created resource.DateTime `json:"created"`
	Invoice invoice.Invoice   `json:"invoice"`
}

// Descriptor maps Log to the invoice/log endpoint.
var Descriptor = resource.Describe[Log]("InvoiceLog")

// Event types.
const (
	TypeCreated    = "created"
	TypeRegistered = "registered"
	TypePaid       = "paid"
	TypeCredited   = "credited"
	TypeOverdue    = "overdue"
	TypeCanceled   = "canceled"
	TypeExpired    = "expired"
)

// QueryParams filters log listings.
type QueryParams struct {
	Limit      *int
	After      any
	Before     any
	Types      []string
	InvoiceIDs []string
}

func (p QueryParams) values() (url.Values, error) {
	return rest.NewQuery().
		Date("after", p.After).
		Date("before", p.Before).
		Strings("types", p.Types).
		IDs("invoiceIds", p.InvoiceIDs).
		Values()
}

// Get fetches one log.
func Get(ctx context.Context, id string, client *rest.Client) (Log, error) {
	return rest.GetID(ctx, client, Descriptor, id)
}

// Query eagerly collects the logs matching params, truncated at Limit.
func Query(ctx context.Context, params QueryParams, client *rest.Client) ([]Log, error) {
	q, err := params.values()
	if err != nil {
		return nil, err
	}
	return rest.GetList(ctx, client, Descriptor, params.Limit, q)
}

// Page fetches one page of logs starting at cursor.
func Page(ctx context.Context, cursor string, params QueryParams, client *rest.Client) ([]Log, string, error) {
	q, err := params.values()
	if err != nil {
		return nil, "", err
	}
	return rest.GetPage(ctx, client, Descriptor, cursor, params.Limit, q)
}
