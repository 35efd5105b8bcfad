// Package brcodepayment binds BR Code payments: Pix charges paid from the
// workspace balance by scanning or pasting a BR Code.
package brcodepayment

import (
	"context"
	"net/url"

	"github.com/coachpo/starkbank/pkg/resource"
	"github.com/coachpo/starkbank/pkg/rest"
)

// BrcodePayment pays the charge encoded in Brcode. TaxID must match the
// receiver's document.
type BrcodePayment struct {
	resource.Resource
	Brcode      string            `json:"brcode,omitempty"`
	TaxID       string            `json:"taxId,omitempty"`
	Description string            `json:"description,omitempty"`
	Amount      int64             `json:"amount,omitempty"`
	Scheduled   resource.DateTime `json:"scheduled"`
	Tags        []string          `json:"tags,omitempty"`
	Rules       []Rule            `json:"rules,omitempty"`

	Name           string            `json:"name,omitempty"`
	Status         string            `json:"status,omitempty"`
	Type           string            `json:"type,omitempty"`
	TransactionIDs []string          `json:"transactionIds,omitempty"`
	Fee            int64             `json:"fee,omitempty"`
	Updated        resource.DateTime `json:"updated"`
	Created        resource.DateTime `json:"created"`
}

// Rule adjusts payment behaviour, e.g. {"resendingLimit", 5}.
type Rule struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// Descriptor maps BrcodePayment to the brcode-payment endpoint.
var Descriptor = resource.Describe[BrcodePayment]("BrcodePayment")

// Status values.
const (
	StatusCreated    = "created"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Create submits payments in one request.
func Create(ctx context.Context, payments []BrcodePayment, client *rest.Client) ([]BrcodePayment, error) {
	return rest.Post(ctx, client, Descriptor, payments, nil)
}

// Get fetches one payment.
func Get(ctx context.Context, id string, client *rest.Client) (BrcodePayment, error) {
	return rest.GetID(ctx, client, Descriptor, id)
}

// QueryParams filters payment listings.
type QueryParams struct {
	Limit  *int
	After  any
	Before any
	Tags   []string
	IDs    []string
	Status string
}

func (p QueryParams) values() (url.Values, error) {
	return rest.NewQuery().
		Date("after", p.After).
		Date("before", p.Before).
		Strings("tags", p.Tags).
		IDs("ids", p.IDs).
		String("status", p.Status).
		Values()
}

// Query streams payments matching params.
func Query(ctx context.Context, params QueryParams, client *rest.Client) *rest.Stream[BrcodePayment] {
	q, err := params.values()
	if err != nil {
		return rest.FailedStream[BrcodePayment](err)
	}
	return rest.GetStream(ctx, client, Descriptor, params.Limit, q)
}

// Page fetches one page of payments starting at cursor.
func Page(ctx context.Context, cursor string, params QueryParams, client *rest.Client) ([]BrcodePayment, string, error) {
	q, err := params.values()
	if err != nil {
		return nil, "", err
	}
	return rest.GetPage(ctx, client, Descriptor, cursor, params.Limit, q)
}

// Patch holds the attributes a scheduled payment accepts after creation.
type Patch struct {
	Status string `json:"status,omitempty"`
}

// Update changes a payment; Status "canceled" cancels a scheduled one.
func Update(ctx context.Context, id string, patch Patch, client *rest.Client) (BrcodePayment, error) {
	return rest.PatchID(ctx, client, Descriptor, id, patch)
}
