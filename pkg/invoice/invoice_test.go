package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/starkbank/errs"
	"github.com/coachpo/starkbank/internal/testutil"
	"github.com/coachpo/starkbank/pkg/resource"
	"github.com/coachpo/starkbank/pkg/rest"
)

func newClient(t *testing.T) (*testutil.FakeBank, *rest.Client) {
	t.Helper()
	fake := testutil.NewFakeBank(t)
	fake.Seed(Descriptor.Endpoint(), Descriptor.Key(), Descriptor.PluralKey())
	client, err := rest.New(fake.User, rest.WithHost(fake.URL()), rest.WithRetry(1, time.Millisecond, time.Second))
	require.NoError(t, err)
	return fake, client
}

func TestCreateQueryUpdate(t *testing.T) {
	fake, client := newClient(t)
	ctx := context.Background()
	fine := resource.MustRate("2.5")

	created, err := Create(ctx, []Invoice{{
		Amount:    400000,
		Name:      "Iron Bank S.A.",
		TaxID:     "20.018.183/0001-80",
		Due:       resource.NewDateTime(time.Date(2024, 5, 12, 15, 0, 0, 0, time.UTC)),
		Fine:      &fine,
		Tags:      []string{"war supply"},
		Discounts: []Discount{{Percentage: resource.MustRate("5"), Due: resource.NewDateTime(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))}},
	}}, client)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, StatusCreated, created[0].Status)
	require.Equal(t, "2.5", created[0].Fine.String())

	body := fake.Requests()[0].Body
	require.Contains(t, body, `"taxId":"20.018.183/0001-80"`)
	require.Contains(t, body, `"due":"2024-05-12T15:00:00Z"`)
	require.NotContains(t, body, `"status"`)
	require.NotContains(t, body, `"created"`)

	got, err := Get(ctx, created[0].ID, client)
	require.NoError(t, err)
	require.Equal(t, created[0].ID, got.ID)

	invoices, err := Query(ctx, QueryParams{Tags: []string{"war supply"}}, client).Collect()
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	require.Equal(t, "war supply", fake.Requests()[2].Query.Get("tags"))

	page, cursor, err := Page(ctx, "", QueryParams{Status: []string{StatusCreated}}, client)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Empty(t, cursor)

	amount := int64(350000)
	updated, err := Update(ctx, created[0].ID, Patch{Amount: &amount}, client)
	require.NoError(t, err)
	require.Equal(t, int64(350000), updated.Amount)

	canceled, err := Update(ctx, created[0].ID, Patch{Status: StatusCanceled}, client)
	require.NoError(t, err)
	require.Equal(t, StatusCanceled, canceled.Status)
}

func TestQueryRejectsBadFilters(t *testing.T) {
	fake, client := newClient(t)
	stream := Query(context.Background(), QueryParams{After: "yesterday"}, client)
	require.False(t, stream.Next())
	require.True(t, errs.IsInput(stream.Err()))

	_, _, err := Page(context.Background(), "", QueryParams{IDs: []string{""}}, client)
	require.True(t, errs.IsInput(err))
	require.Empty(t, fake.Requests())
}

func TestGetMissingInvoice(t *testing.T) {
	_, client := newClient(t)
	_, err := Get(context.Background(), "404404404", client)
	require.True(t, errs.IsNotFound(err))
}
