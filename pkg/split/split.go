// Package split binds the Split resource: shares of a received payment
// forwarded to registered receivers.
package split

import (
	"context"
	"net/url"

	"github.com/coachpo/starkbank/pkg/resource"
	"github.com/coachpo/starkbank/pkg/rest"
)

// Split is created by the API when an invoice carrying split rules is paid.
type Split struct {
	resource.Resource
	Amount     int64             `json:"amount"`
	ReceiverID string            `json:"receiverId"`
	Source     string            `json:"source,omitempty"`
	ExternalID string            `json:"externalId,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Scheduled  resource.DateTime `json:"scheduled"`
	Status     string            `json:"status,omitempty"`
	Created    resource.DateTime `json:"created"`
	Updated    resource.DateTime `json:"updated"`
}

// Descriptor maps Split to the split endpoint.
var Descriptor = resource.Describe[Split]("Split")

// QueryParams filters split listings.
type QueryParams struct {
	Limit       *int
	After       any
	Before      any
	Status      []string
	Tags        []string
	IDs         []string
	ReceiverIDs []string
}

func (p QueryParams) values() (url.Values, error) {
	return rest.NewQuery().
		Date("after", p.After).
		Date("before", p.Before).
		Strings("status", p.Status).
		Strings("tags", p.Tags).
		IDs("ids", p.IDs).
		IDs("receiverIds", p.ReceiverIDs).
		Values()
}

// Get fetches one split.
func Get(ctx context.Context, id string, client *rest.Client) (Split, error) {
	return rest.GetID(ctx, client, Descriptor, id)
}

// Query streams splits matching params.
func Query(ctx context.Context, params QueryParams, client *rest.Client) *rest.Stream[Split] {
	q, err := params.values()
	if err != nil {
		return rest.FailedStream[Split](err)
	}
	return rest.GetStream(ctx, client, Descriptor, params.Limit, q)
}

// Page fetches one page of splits starting at cursor.
func Page(ctx context.Context, cursor string, params QueryParams, client *rest.Client) ([]Split, string, error) {
	q, err := params.values()
	if err != nil {
		return nil, "", err
	}
	return rest.GetPage(ctx, client, Descriptor, cursor, params.Limit, q)
}
