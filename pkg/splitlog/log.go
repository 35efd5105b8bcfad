// Package splitlog exposes the event history of splits.
package splitlog

import (
	"context"
	"net/url"

	"github.com/coachpo/starkbank/pkg/resource"
	"github.com/coachpo/starkbank/pkg/rest"
	"github.com/coachpo/starkbank/pkg/split"
)

// Log records one split event with the split as it was at that moment.
type Log struct {
	resource.Resource
	Type    string            `json:"type"`
	Errors  []string          `json:"errors"`
	Created resource.DateTime `json:"created"`
	Split   split.Split       `json:"split"`
}

// Descriptor maps Log to the split/log endpoint.
var Descriptor = resource.Describe[Log]("SplitLog")

// Event types.
const (
	TypeCreated    = "created"
	TypeProcessing = "processing"
	TypeSuccess    = "success"
	TypeFailed     = "failed"
)

// QueryParams filters log listings.
type QueryParams struct {
	Limit    *int
	After    any
	Before   any
	Types    []string
	SplitIDs []string
}

func (p QueryParams) values() (url.Values, error) {
	return rest.NewQuery().
		Date("after", p.After).
		Date("before", p.Before).
		Strings("types", p.Types).
		IDs("splitIds", p.SplitIDs).
		Values()
}

// Get fetches one log.
func Get(ctx context.Context, id string, client *rest.Client) (Log, error) {
	return rest.GetID(ctx, client, Descriptor, id)
}

// Query lazily streams the logs matching params.
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
