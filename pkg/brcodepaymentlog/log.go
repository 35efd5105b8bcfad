// Package brcodepaymentlog exposes the event history of BR Code payments.
package brcodepaymentlog

import (
	"context"
	"net/url"

	"github.com/coachpo/starkbank/pkg/brcodepayment"
	"github.com/coachpo/starkbank/pkg/resource"
	"github.com/coachpo/starkbank/pkg/rest"
)

// Log records one payment event with the payment as it was at that moment.
type Log struct {
	resource.Resource
	Type    string                      `json:"type"`
	Errors  []string                    `json:"errors"`
	Created resource.DateTime           `json:"created"`
	Payment brcodepayment.BrcodePayment `json:"payment"`
}

// Descriptor maps Log to the brcode-payment/log endpoint.
var Descriptor = resource.Describe[Log]("BrcodePaymentLog")

// Event types.
const (
	TypeCreated    = "created"
	TypeProcessing = "processing"
	TypeSuccess    = "success"
	TypeFailed     = "failed"
	TypeCanceled   = "canceled"
)

// QueryParams filters log listings.
type QueryParams struct {
	Limit      *int
	After      any
	Before     any
	Types      []string
	PaymentIDs []string
}

func (p QueryParams) values() (url.Values, error) {
	return rest.NewQuery().
		Date("after", p.After).
		Date("before", p.Before).
		Strings("types", p.Types).
		IDs("paymentIds", p.PaymentIDs).
		Values()
}

// Get fetches one log.
func Get(ctx context.Context, id string, client *rest.Client) (Log, error) {
	return rest.GetID(ctx, client, Descriptor, id)
}

// Query streams the logs matching params.
func Query(ctx context.Context, params QueryParams, client *rest.Client) *rest.Stream[Log] {
	q, err := params.values()
	if err != nil {
		return rest.FailedStream[Log](err)
	}
	return rest.GetStream(ctx, client, Descriptor, params.Limit, q)
}

// Page fetches one page of logs starting at cursor.
func Page(ctx context.Context, cursor string, params QueryParams, client *rest.Client) ([]Log, string, error) {
	q, err := params.values()
	if err != nil {
		return nil, "", err
	}
	return rest.GetPage(ctx, client, Descriptor, cursor, params.Limit, q)
}
