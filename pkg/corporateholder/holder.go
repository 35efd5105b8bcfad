// Package corporateholder binds corporate card holders, their access
// permissions and spending rules.
package corporateholder

import (
	"context"
	"net/url"

	"github.com/coachpo/starkbank/pkg/resource"
	"github.com/coachpo/starkbank/pkg/rest"
)

// CorporateHolder owns corporate cards issued under a cost center.
type CorporateHolder struct {
	resource.Resource
	Name        string       `json:"name,omitempty"`
	CenterID    string       `json:"centerId,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
	Rules       []Rule       `json:"rules,omitempty"`
	Tags        []string     `json:"tags,omitempty"`

	Status  string            `json:"status,omitempty"`
	Updated resource.DateTime `json:"updated"`
	Created resource.DateTime `json:"created"`
}

// Permission grants a project or member access to the holder.
type Permission struct {
	OwnerID         string            `json:"ownerId,omitempty"`
	OwnerType       string            `json:"ownerType,omitempty"`
	OwnerEmail      string            `json:"ownerEmail,omitempty"`
	OwnerName       string            `json:"ownerName,omitempty"`
	OwnerPictureURL string            `json:"ownerPictureUrl,omitempty"`
	OwnerStatus     string            `json:"ownerStatus,omitempty"`
	Created         resource.DateTime `json:"created"`
}

// Rule limits card spending over an interval.
type Rule struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name,omitempty"`
	Amount         int64    `json:"amount,omitempty"`
	Interval       string   `json:"interval,omitempty"`
	CurrencyCode   string   `json:"currencyCode,omitempty"`
	CounterAmount  int64    `json:"counterAmount,omitempty"`
	CurrencyName   string   `json:"currencyName,omitempty"`
	CurrencySymbol string   `json:"currencySymbol,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	Countries      []string `json:"countries,omitempty"`
	Methods        []string `json:"methods,omitempty"`
	Schedule       string   `json:"schedule,omitempty"`
	Purposes       []string `json:"purposes,omitempty"`
}

// Descriptor maps CorporateHolder to the corporate-holder endpoint.
var Descriptor = resource.Describe[CorporateHolder]("CorporateHolder")

// Status values.
const (
	StatusActive   = "active"
	StatusBlocked  = "blocked"
	StatusCanceled = "canceled"
)

// Create registers holders. Expand may include "rules" to echo them back.
func Create(ctx context.Context, holders []CorporateHolder, expand []string, client *rest.Client) ([]CorporateHolder, error) {
	q, err := rest.NewQuery().Strings("expand", expand).Values()
	if err != nil {
		return nil, err
	}
	return rest.Post(ctx, client, Descriptor, holders, q)
}

// Get fetches one holder.
func Get(ctx context.Context, id string, expand []string, client *rest.Client) (CorporateHolder, error) {
	q, err := rest.NewQuery().Strings("expand", expand).Values()
	if err != nil {
		return CorporateHolder{}, err
	}
	return rest.GetIDWith(ctx, client, Descriptor, id, q)
}

// QueryParams filters holder listings.
type QueryParams struct {
	Limit  *int
	After  any
	Before any
	Status []string
	Tags   []string
	IDs    []string
	Expand []string
}

func (p QueryParams) values() (url.Values, error) {
	return rest.NewQuery().
		Date("after", p.After).
		Date("before", p.Before).
		Strings("status", p.Status).
		Strings("tags", p.Tags).
		IDs("ids", p.IDs).
		Strings("expand", p.Expand).
		Values()
}

// Query streams holders matching params.
func Query(ctx context.Context, params QueryParams, client *rest.Client) *rest.Stream[CorporateHolder] {
	q, err := params.values()
	if err != nil {
		return rest.FailedStream[CorporateHolder](err)
	}
	return rest.GetStream(ctx, client, Descriptor, params.Limit, q)
}

// Page fetches one page of holders starting at cursor.
func Page(ctx context.Context, cursor string, params QueryParams, client *rest.Client) ([]CorporateHolder, string, error) {
	q, err := params.values()
	if err != nil {
		return nil, "", err
	}
	return rest.GetPage(ctx, client, Descriptor, cursor, params.Limit, q)
}

// Patch lists the holder attributes that may change. Nil slices are left
// untouched; an empty non-nil slice is still omitted by the wire encoder.
type Patch struct {
	CenterID    string       `json:"centerId,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
	Status      string       `json:"status,omitempty"`
	Name        string       `json:"name,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Rules       []Rule       `json:"rules,omitempty"`
}

// Update changes a holder.
func Update(ctx context.Context, id string, patch Patch, client *rest.Client) (CorporateHolder, error) {
	return rest.PatchID(ctx, client, Descriptor, id, patch)
}

// Cancel permanently cancels a holder and its cards.
func Cancel(ctx context.Context, id string, client *rest.Client) (CorporateHolder, error) {
	return rest.DeleteID(ctx, client, Descriptor, id)
}
