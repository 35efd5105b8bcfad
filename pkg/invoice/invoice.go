// Package invoice binds the Invoice resource: charges payable through a
// dynamic BR Code or boleto.
package invoice

import (
	"context"
	"net/url"

	"github.com/coachpo/starkbank/pkg/resource"
	"github.com/coachpo/starkbank/pkg/rest"
)

// Invoice is a charge issued to a payer. Fields after Splits are set by the
// API and ignored on create.
type Invoice struct {
	resource.Resource
	Amount       int64             `json:"amount,omitempty"`
	Name         string            `json:"name,omitempty"`
	TaxID        string            `json:"taxId,omitempty"`
	Due          resource.DateTime `json:"due"`
	Expiration   int64             `json:"expiration,omitempty"`
	Fine         *resource.Rate    `json:"fine,omitempty"`
	Interest     *resource.Rate    `json:"interest,omitempty"`
	Discounts    []Discount        `json:"discounts,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Descriptions []Description     `json:"descriptions,omitempty"`
	Rules        []Rule            `json:"rules,omitempty"`
	Splits       []Split           `json:"splits,omitempty"`

	Pdf            string            `json:"pdf,omitempty"`
	Link           string            `json:"link,omitempty"`
	NominalAmount  int64             `json:"nominalAmount,omitempty"`
	FineAmount     int64             `json:"fineAmount,omitempty"`
	InterestAmount int64             `json:"interestAmount,omitempty"`
	DiscountAmount int64             `json:"discountAmount,omitempty"`
	Brcode         string            `json:"brcode,omitempty"`
	Status         string            `json:"status,omitempty"`
	Fee            int64             `json:"fee,omitempty"`
	TransactionIDs []string          `json:"transactionIds,omitempty"`
	Created        resource.DateTime `json:"created"`
	Updated        resource.DateTime `json:"updated"`
}

// Discount is a percentage taken off when paid before Due.
type Discount struct {
	Percentage resource.Rate     `json:"percentage"`
	Due        resource.DateTime `json:"due"`
}

// Description is a key/value line printed on the invoice.
type Description struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Rule customises invoice behaviour, e.g. {"allowedTaxIds", [...]}.
type Rule struct {
	Key   string   `json:"key"`
	Value []string `json:"value"`
}

// Split forwards part of the paid amount to a receiver.
type Split struct {
	ReceiverID string `json:"receiverId"`
	Amount     int64  `json:"amount"`
}

// Descriptor maps Invoice to the invoice endpoint.
var Descriptor = resource.Describe[Invoice]("Invoice")

// Status values.
const (
	StatusCreated  = "created"
	StatusPaid     = "paid"
	StatusCanceled = "canceled"
	StatusOverdue  = "overdue"
	StatusExpired  = "expired"
)

// Create issues invoices in one request.
func Create(ctx context.Context, invoices []Invoice, client *rest.Client) ([]Invoice, error) {
	return rest.Post(ctx, client, Descriptor, invoices, nil)
}

// Get fetches one invoice.
func Get(ctx context.Context, id string, client *rest.Client) (Invoice, error) {
	return rest.GetID(ctx, client, Descriptor, id)
}

// QueryParams filters invoice listings. After and Before accept anything
// checks.Date does: time.Time, resource.Date or a YYYY-MM-DD string.
type QueryParams struct {
	Limit  *int
	After  any
	Before any
	Status []string
	Tags   []string
	IDs    []string
}

func (p QueryParams) values() (url.Values, error) {
	return rest.NewQuery().
		Date("after", p.After).
		Date("before", p.Before).
		Strings("status", p.Status).
		Strings("tags", p.Tags).
		IDs("ids", p.IDs).
		Values()
}

// Query streams invoices matching params.
func Query(ctx context.Context, params QueryParams, client *rest.Client) *rest.Stream[Invoice] {
	q, err := params.values()
	if err != nil {
		return rest.FailedStream[Invoice](err)
	}
	return rest.GetStream(ctx, client, Descriptor, params.Limit, q)
}

// Page fetches one page of invoices starting at cursor.
func Page(ctx context.Context, cursor string, params QueryParams, client *rest.Client) ([]Invoice, string, error) {
	q, err := params.values()
	if err != nil {
		return nil, "", err
	}
	return rest.GetPage(ctx, client, Descriptor, cursor, params.Limit, q)
}

// Patch lists the invoice attributes that may change after creation. Unset
// fields are left untouched.
type Patch struct {
	Status     string             `json:"status,omitempty"`
	Amount     *int64             `json:"amount,omitempty"`
	Due        *resource.DateTime `json:"due,omitempty"`
	Expiration *int64             `json:"expiration,omitempty"`
}

// Update applies patch to the invoice; Status "canceled" cancels it.
func Update(ctx context.Context, id string, patch Patch, client *rest.Client) (Invoice, error) {
	return rest.PatchID(ctx, client, Descriptor, id, patch)
}
