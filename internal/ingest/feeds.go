package ingest

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coachpo/starkbank/config"
	"github.com/coachpo/starkbank/internal/domain/checkpointstore"
	"github.com/coachpo/starkbank/pkg/brcodepaymentlog"
	"github.com/coachpo/starkbank/pkg/invoicelog"
	"github.com/coachpo/starkbank/pkg/rest"
	"github.com/coachpo/starkbank/pkg/splitlog"
)

// pageRequest is one GetPage call of a feed pass.
type pageRequest struct {
	Cursor string
	Limit  *int
	After  string
	Types  []string
}

// pageFunc fetches one page of a log resource as stored entities.
type pageFunc func(ctx context.Context, client *rest.Client, feed string, req pageRequest) ([]checkpointstore.Entity, string, error)

func fetcherFor(resourceName string) (pageFunc, error) {
	switch resourceName {
	case config.FeedInvoiceLog:
		return func(ctx context.Context, client *rest.Client, feed string, req pageRequest) ([]checkpointstore.Entity, string, error) {
			logs, cursor, err := invoicelog.Page(ctx, req.Cursor, invoicelog.QueryParams{
				Limit: req.Limit, After: req.After, Types: req.Types,
			}, client)
			if err != nil {
				return nil, "", err
			}
			out, err := toEntities(feed, logs, func(l invoicelog.Log) (string, string, time.Time) {
				return l.ID, l.Type, l.Created.Time()
			})
			return out, cursor, err
		}, nil
	case config.FeedSplitLog:
		return func(ctx context.Context, client *rest.Client, feed string, req pageRequest) ([]checkpointstore.Entity, string, error) {
			logs, cursor, err := splitlog.Page(ctx, req.Cursor, splitlog.QueryParams{
				Limit: req.Limit, After: req.After, Types: req.Types,
			}, client)
			if err != nil {
				return nil, "", err
			}
			out, err := toEntities(feed, logs, func(l splitlog.Log) (string, string, time.Time) {
				return l.ID, l.Type, l.Created.Time()
			})
			return out, cursor, err
		}, nil
	case config.FeedBrcodePaymentLog:
		return func(ctx context.Context, client *rest.Client, feed string, req pageRequest) ([]checkpointstore.Entity, string, error) {
			logs, cursor, err := brcodepaymentlog.Page(ctx, req.Cursor, brcodepaymentlog.QueryParams{
				Limit: req.Limit, After: req.After, Types: req.Types,
			}, client)
			if err != nil {
				return nil, "", err
			}
			out, err := toEntities(feed, logs, func(l brcodepaymentlog.Log) (string, string, time.Time) {
				return l.ID, l.Type, l.Created.Time()
			})
			return out, cursor, err
		}, nil
	default:
		return nil, fmt.Errorf("unknown feed resource %q", resourceName)
	}
}

func toEntities[T any](feed string, logs []T, meta func(T) (id, typ string, created time.Time)) ([]checkpointstore.Entity, error) {
	out := make([]checkpointstore.Entity, 0, len(logs))
	for _, l := range logs {
		payload, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("encode %s entity: %w", feed, err)
		}
		id, typ, created := meta(l)
		out = append(out, checkpointstore.Entity{Feed: feed, ID: id, Type: typ, Created: created, Payload: payload})
	}
	return out, nil
}
