package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/coachpo/starkbank/errs"
	"github.com/coachpo/starkbank/internal/checks"
	"github.com/coachpo/starkbank/pkg/resource"
)

// GetID fetches one entity by id.
func GetID[T resource.Identifiable](ctx context.Context, c *Client, d resource.Descriptor[T], id string) (T, error) {
	return GetIDWith(ctx, c, d, id, nil)
}

// GetIDWith fetches one entity by id with extra query options such as expand.
func GetIDWith[T resource.Identifiable](ctx context.Context, c *Client, d resource.Descriptor[T], id string, q url.Values) (T, error) {
	var zero T
	path, err := idPath(d, id)
	if err != nil {
		return zero, err
	}
	client, err := resolve(c)
	if err != nil {
		return zero, err
	}
	body, err := client.do(ctx, d.Name, d.Endpoint(), http.MethodGet, path, q, nil)
	if err != nil {
		return zero, err
	}
	return resource.DecodeEnvelope(d, body)
}

// GetList eagerly collects up to limit entities (all of them when limit is
// nil) in server order.
func GetList[T resource.Identifiable](ctx context.Context, c *Client, d resource.Descriptor[T], limit *int, q url.Values) ([]T, error) {
	return GetStream(ctx, c, d, limit, q).Collect()
}

// GetPage performs exactly one list request and returns the entities with
// the cursor of the next page ("" when there is none).
func GetPage[T resource.Identifiable](ctx context.Context, c *Client, d resource.Descriptor[T], cursor string, limit *int, q url.Values) ([]T, string, error) {
	size, err := checks.PageLimit(limit)
	if err != nil {
		return nil, "", err
	}
	client, err := resolve(c)
	if err != nil {
		return nil, "", err
	}
	return fetchPage(ctx, client, d, cursor, size, q)
}

func fetchPage[T resource.Identifiable](ctx context.Context, c *Client, d resource.Descriptor[T], cursor string, size int, q url.Values) ([]T, string, error) {
	query := cloneValues(q)
	query.Set("limit", strconv.Itoa(size))
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	body, err := c.do(ctx, d.Name, d.Endpoint(), http.MethodGet, d.Endpoint(), query, nil)
	if err != nil {
		return nil, "", err
	}
	items, next, err := resource.DecodeList(d, body)
	if err != nil {
		return nil, "", err
	}
	c.transport.Instruments().RecordPage(ctx, d.Name)
	return items, next, nil
}

// Post creates entities in one request and returns them, as echoed by the
// API, in request order. q carries options such as expand.
func Post[T resource.Identifiable](ctx context.Context, c *Client, d resource.Descriptor[T], entities []T, q url.Values) ([]T, error) {
	if len(entities) == 0 {
		return nil, errs.Input(d.Name, "at least one entity is required")
	}
	encoded, err := resource.EncodeMany(entities)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]any{d.PluralKey(): encoded})
	if err != nil {
		return nil, errs.Input(d.Name, "encode request body", errs.WithCause(err))
	}
	client, err := resolve(c)
	if err != nil {
		return nil, err
	}
	resp, err := client.do(ctx, d.Name, d.Endpoint(), http.MethodPost, d.Endpoint(), q, body)
	if err != nil {
		return nil, err
	}
	created, _, err := resource.DecodeList(d, resp)
	return created, err
}

// PatchID sends the attributes set on payload and returns the updated entity.
func PatchID[T resource.Identifiable](ctx context.Context, c *Client, d resource.Descriptor[T], id string, payload any) (T, error) {
	var zero T
	path, err := idPath(d, id)
	if err != nil {
		return zero, err
	}
	encoded, err := resource.Encode(payload)
	if err != nil {
		return zero, err
	}
	if len(encoded) == 0 {
		return zero, errs.Input(d.Name, "update has no attributes set")
	}
	body, err := json.Marshal(encoded)
	if err != nil {
		return zero, errs.Input(d.Name, "encode request body", errs.WithCause(err))
	}
	client, err := resolve(c)
	if err != nil {
		return zero, err
	}
	resp, err := client.do(ctx, d.Name, d.Endpoint(), http.MethodPatch, path, nil, body)
	if err != nil {
		return zero, err
	}
	return resource.DecodeEnvelope(d, resp)
}

// DeleteID cancels or deletes one entity and returns its final state.
func DeleteID[T resource.Identifiable](ctx context.Context, c *Client, d resource.Descriptor[T], id string) (T, error) {
	var zero T
	path, err := idPath(d, id)
	if err != nil {
		return zero, err
	}
	client, err := resolve(c)
	if err != nil {
		return zero, err
	}
	resp, err := client.do(ctx, d.Name, d.Endpoint(), http.MethodDelete, path, nil, nil)
	if err != nil {
		return zero, err
	}
	return resource.DecodeEnvelope(d, resp)
}

func idPath[T resource.Identifiable](d resource.Descriptor[T], id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errs.Input(d.Name, "id is required")
	}
	if strings.ContainsAny(id, "/?#") {
		return "", errs.Input(d.Name, "id must not contain path separators")
	}
	return d.Path(url.PathEscape(id)), nil
}
