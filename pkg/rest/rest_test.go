package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/coachpo/starkbank/errs"
	"github.com/coachpo/starkbank/internal/telemetry"
	"github.com/coachpo/starkbank/internal/testutil"
	"github.com/coachpo/starkbank/pkg/resource"
)

type invoiceRef struct {
	resource.Resource
	Amount int64  `json:"amount,omitempty"`
	Status string `json:"status,omitempty"`
}

type logEntry struct {
	resource.Resource
	Type    string            `json:"type"`
	Errors  []string          `json:"errors"`
	Created resource.DateTime `json:"created"`
	Invoice invoiceRef        `json:"invoice"`
}

type invoiceEntity struct {
	resource.Resource
	Amount int64    `json:"amount,omitempty"`
	Name   string   `json:"name,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Status string   `json:"status,omitempty"`
}

var (
	logResource     = resource.Describe[logEntry]("InvoiceLog")
	invoiceResource = resource.Describe[invoiceEntity]("Invoice")
)

func intPtr(v int) *int { return &v }

func newFake(t *testing.T) (*testutil.FakeBank, *Client) {
	t.Helper()
	fake := testutil.NewFakeBank(t)
	client, err := New(fake.User, WithHost(fake.URL()), WithRetry(2, time.Millisecond, time.Second))
	require.NoError(t, err)
	return fake, client
}

func seedLogs(fake *testutil.FakeBank) {
	// 25 paid logs interleaved with 25 created and 25 canceled ones.
	fake.Seed("invoice/log", "log", "logs", testutil.InvoiceLogs(75, "created", "paid", "canceled")...)
}

func paidQuery(t *testing.T) url.Values {
	t.Helper()
	q, err := NewQuery().Strings("types", []string{"paid"}).Values()
	require.NoError(t, err)
	return q
}

func TestGetListHonoursLimitWithSingleRequest(t *testing.T) {
	fake, client := newFake(t)
	seedLogs(fake)

	logs, err := GetList(context.Background(), client, logResource, intPtr(10), paidQuery(t))
	require.NoError(t, err)
	require.Len(t, logs, 10)
	for _, log := range logs {
		require.Equal(t, "paid", log.Type)
		require.NotEmpty(t, log.Invoice.ID)
	}
	requests := fake.Requests()
	require.Len(t, requests, 1)
	require.Equal(t, "10", requests[0].Query.Get("limit"))
	require.Equal(t, "paid", requests[0].Query.Get("types"))
}

func TestGetListWithoutLimitReturnsEverything(t *testing.T) {
	fake, client := newFake(t)
	seedLogs(fake)

	logs, err := GetList(context.Background(), client, logResource, nil, paidQuery(t))
	require.NoError(t, err)
	require.Len(t, logs, 25)
	require.Equal(t, "100", fake.Requests()[0].Query.Get("limit"))
}

func TestGetStreamPagesLazily(t *testing.T) {
	fake, client := newFake(t)
	fake.Seed("invoice/log", "log", "logs", testutil.InvoiceLogs(230)...)

	stream := GetStream(context.Background(), client, logResource, intPtr(150), nil)
	require.Empty(t, fake.Requests())

	require.True(t, stream.Next())
	require.Len(t, fake.Requests(), 1)

	count := 1
	for stream.Next() {
		count++
	}
	require.NoError(t, stream.Err())
	require.Equal(t, 150, count)

	requests := fake.Requests()
	require.Len(t, requests, 2)
	require.Equal(t, "100", requests[0].Query.Get("limit"))
	require.Equal(t, "50", requests[1].Query.Get("limit"))
	require.Equal(t, "c100", requests[1].Query.Get("cursor"))
}

func TestGetStreamStopsOnEmptyCursor(t *testing.T) {
	fake, client := newFake(t)
	fake.Seed("invoice/log", "log", "logs", testutil.InvoiceLogs(3)...)

	var ids []string
	for log, err := range GetStream(context.Background(), client, logResource, nil, nil).All() {
		require.NoError(t, err)
		ids = append(ids, log.ID)
	}
	require.Equal(t, []string{"9000", "9001", "9002"}, ids)
	require.Len(t, fake.Requests(), 1)
}

func TestGetListFillsLimitFromShortPages(t *testing.T) {
	fake, client := newFake(t)
	fake.Seed("invoice/log", "log", "logs", testutil.InvoiceLogs(300)...)
	fake.CapPages(50)

	logs, err := GetList(context.Background(), client, logResource, intPtr(150), nil)
	require.NoError(t, err)
	require.Len(t, logs, 150)
	require.Equal(t, "9000", logs[0].ID)
	require.Equal(t, "9149", logs[149].ID)

	requests := fake.Requests()
	require.Len(t, requests, 3)
	require.Equal(t, []string{"100", "100", "50"}, []string{
		requests[0].Query.Get("limit"),
		requests[1].Query.Get("limit"),
		requests[2].Query.Get("limit"),
	})
	require.Equal(t, "c100", requests[2].Query.Get("cursor"))
}

func TestGetStreamStopsOnEmptyPage(t *testing.T) {
	fake, client := newFake(t)
	fake.Seed("invoice/log", "log", "logs", testutil.InvoiceLogs(3)...)
	fake.FailWith(func(r *http.Request, call int) (int, string, bool) {
		return http.StatusOK, `{"logs":[],"cursor":"c0"}`, true
	})

	logs, err := GetList(context.Background(), client, logResource, nil, nil)
	require.NoError(t, err)
	require.Empty(t, logs)
	require.Len(t, fake.Requests(), 1)
}

func TestAbandonedStreamMakesNoFurtherCalls(t *testing.T) {
	fake, client := newFake(t)
	fake.Seed("invoice/log", "log", "logs", testutil.InvoiceLogs(250)...)

	for range GetStream(context.Background(), client, logResource, nil, nil).All() {
		break
	}
	require.Len(t, fake.Requests(), 1)
}

func TestPagesConcatenateToList(t *testing.T) {
	fake, client := newFake(t)
	seedLogs(fake)
	q := paidQuery(t)

	var paged []string
	cursor := ""
	pages := 0
	for {
		items, next, err := GetPage(context.Background(), client, logResource, cursor, intPtr(7), q)
		require.NoError(t, err)
		require.LessOrEqual(t, len(items), 7)
		for _, item := range items {
			paged = append(paged, item.ID)
		}
		pages++
		if next == "" {
			break
		}
		cursor = next
	}
	require.Equal(t, 4, pages)

	listed, err := GetList(context.Background(), client, logResource, nil, q)
	require.NoError(t, err)
	ids := make([]string, 0, len(listed))
	for _, item := range listed {
		ids = append(ids, item.ID)
	}
	require.Equal(t, ids, paged)
}

func TestGetPageValidatesLimit(t *testing.T) {
	fake, client := newFake(t)
	seedLogs(fake)

	for _, limit := range []int{0, 101, -1} {
		_, _, err := GetPage(context.Background(), client, logResource, "", intPtr(limit), nil)
		require.True(t, errs.IsInput(err), strconv.Itoa(limit))
	}
	require.Empty(t, fake.Requests())

	items, cursor, err := GetPage(context.Background(), client, logResource, "", nil, nil)
	require.NoError(t, err)
	require.Len(t, items, 75)
	require.Empty(t, cursor)
}

func TestStreamLaterPageFailure(t *testing.T) {
	fake, client := newFake(t)
	fake.Seed("invoice/log", "log", "logs", testutil.InvoiceLogs(150)...)
	fake.FailWith(func(r *http.Request, call int) (int, string, bool) {
		if r.URL.Query().Get("cursor") != "" {
			return http.StatusServiceUnavailable, `{"errors":[{"code":"internalError","message":"try again"}]}`, true
		}
		return 0, "", false
	})

	stream := GetStream(context.Background(), client, logResource, nil, nil)
	var yielded []logEntry
	for stream.Next() {
		yielded = append(yielded, stream.Item())
	}
	require.Len(t, yielded, 100)
	require.Equal(t, "9000", yielded[0].ID)
	require.Equal(t, errs.CodeUnavailable, errs.CodeOf(stream.Err()))
	require.False(t, stream.Next())

	_, err := GetList(context.Background(), client, logResource, nil, nil)
	require.Equal(t, errs.CodeUnavailable, errs.CodeOf(err))
}

func TestGetIDNotFound(t *testing.T) {
	fake, client := newFake(t)
	seedLogs(fake)

	log, err := GetID(context.Background(), client, logResource, "9001")
	require.NoError(t, err)
	require.Equal(t, "9001", log.ID)

	_, err = GetID(context.Background(), client, logResource, "123")
	require.True(t, errs.IsNotFound(err))
	require.True(t, errs.IsRemote(err))

	_, err = GetID(context.Background(), client, logResource, " ")
	require.True(t, errs.IsInput(err))
	require.Len(t, fake.Requests(), 2)
}

func TestInvalidLimitFailsBeforeAnyRequest(t *testing.T) {
	fake, client := newFake(t)
	seedLogs(fake)

	stream := GetStream(context.Background(), client, logResource, intPtr(0), nil)
	require.False(t, stream.Next())
	require.True(t, errs.IsInput(stream.Err()))

	_, err := NewQuery().IDs("invoiceIds", []string{"1", "bad id"}).Values()
	require.True(t, errs.IsInput(err))
	require.Empty(t, fake.Requests())
}

func TestWriteOperations(t *testing.T) {
	fake, client := newFake(t)
	fake.Seed("invoice", "invoice", "invoices")

	created, err := Post(context.Background(), client, invoiceResource, []invoiceEntity{
		{Amount: 400000, Name: "Iron Bank S.A.", Tags: []string{"war supply"}},
		{Amount: 1000, Name: "Arya Stark"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.NotEmpty(t, created[0].ID)
	require.Equal(t, int64(400000), created[0].Amount)
	require.Equal(t, "Arya Stark", created[1].Name)
	require.NotContains(t, fake.Requests()[0].Body, `"id"`)

	type amountPatch struct {
		Amount *int64 `json:"amount,omitempty"`
		Status string `json:"status,omitempty"`
	}
	amount := int64(500)
	updated, err := PatchID(context.Background(), client, invoiceResource, created[1].ID, amountPatch{Amount: &amount})
	require.NoError(t, err)
	require.Equal(t, int64(500), updated.Amount)
	require.JSONEq(t, `{"amount":500}`, fake.Requests()[1].Body)

	_, err = PatchID(context.Background(), client, invoiceResource, created[1].ID, amountPatch{})
	require.True(t, errs.IsInput(err))

	canceled, err := DeleteID(context.Background(), client, invoiceResource, created[0].ID)
	require.NoError(t, err)
	require.Equal(t, "canceled", canceled.Status)

	_, err = Post(context.Background(), client, invoiceResource, nil, nil)
	require.True(t, errs.IsInput(err))
}

func TestDefaultClient(t *testing.T) {
	defer defaultClient.Store(nil)

	_, err := GetID(context.Background(), nil, logResource, "1")
	require.True(t, errs.IsInput(err))

	fake, client := newFake(t)
	seedLogs(fake)
	require.True(t, errs.IsInput(SetDefault(nil)))
	require.NoError(t, SetDefault(client))
	require.True(t, errs.IsInput(SetDefault(client)))

	log, err := GetID(context.Background(), nil, logResource, "9000")
	require.NoError(t, err)
	require.Equal(t, "9000", log.ID)
}

func TestNewRejectsUnknownLanguage(t *testing.T) {
	fake := testutil.NewFakeBank(t)
	_, err := New(fake.User, WithLanguage("fr-FR"))
	require.True(t, errs.IsInput(err))

	_, err = New(fake.User, WithLanguage(LanguagePortuguese))
	require.NoError(t, err)
}

func TestQueryBuilder(t *testing.T) {
	q, err := NewQuery().
		Date("after", "2020-03-10T23:59:59").
		Date("before", nil).
		Strings("tags", []string{"a", "b"}).
		IDs("invoiceIds", []string{"2", "1", "2"}).
		String("status", " paid ").
		Values()
	require.NoError(t, err)
	require.Equal(t, "2020-03-10", q.Get("after"))
	require.False(t, q.Has("before"))
	require.Equal(t, "a,b", q.Get("tags"))
	require.Equal(t, "2,1", q.Get("invoiceIds"))
	require.Equal(t, "paid", q.Get("status"))

	_, err = NewQuery().Date("after", "10/03/2020").Values()
	require.True(t, errs.IsInput(err))
}

func TestMeterLabelsRequestsByEndpoint(t *testing.T) {
	fake := testutil.NewFakeBank(t)
	fake.Seed("invoice", "invoice", "invoices",
		map[string]any{"id": "5656565656565656", "amount": 400000},
		map[string]any{"id": "4545454545454545", "amount": 100},
	)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	client, err := New(fake.User, WithHost(fake.URL()), WithMeter(mp.Meter("rest-test")))
	require.NoError(t, err)

	for _, id := range []string{"5656565656565656", "4545454545454545"} {
		_, err := GetID(context.Background(), client, invoiceResource, id)
		require.NoError(t, err)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var points []metricdata.DataPoint[int64]
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == telemetry.MetricRequests {
				points = m.Data.(metricdata.Sum[int64]).DataPoints
			}
		}
	}
	require.Len(t, points, 1)
	require.EqualValues(t, 2, points[0].Value)
	endpoint, ok := points[0].Attributes.Value(telemetry.AttrEndpoint)
	require.True(t, ok)
	require.Equal(t, "invoice", endpoint.AsString())
}
