package brcodepaymentlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/starkbank/internal/testutil"
	"github.com/coachpo/starkbank/pkg/rest"
)

func TestQueryByPayment(t *testing.T) {
	fake := testutil.NewFakeBank(t)
	require.Equal(t, "brcode-payment/log", Descriptor.Endpoint())
	fake.Seed(Descriptor.Endpoint(), Descriptor.Key(), Descriptor.PluralKey(),
		map[string]any{"id": "1", "type": TypeCreated, "errors": []string{}, "created": "2024-03-01T09:00:00+00:00", "payment": map[string]any{"id": "55", "status": "created"}},
		map[string]any{"id": "2", "type": TypeFailed, "errors": []string{"insufficient balance"}, "created": "2024-03-01T09:05:00+00:00", "payment": map[string]any{"id": "55", "status": "failed"}},
		map[string]any{"id": "3", "type": TypeCreated, "errors": []string{}, "created": "2024-03-02T09:00:00+00:00", "payment": map[string]any{"id": "56", "status": "created"}},
	)
	client, err := rest.New(fake.User, rest.WithHost(fake.URL()))
	require.NoError(t, err)

	logs, err := Query(context.Background(), QueryParams{PaymentIDs: []string{"55"}}, client).Collect()
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, []string{"insufficient balance"}, logs[1].Errors)
	require.Equal(t, "failed", logs[1].Payment.Status)
	require.Equal(t, "55", fake.Requests()[0].Query.Get("paymentIds"))

	page, cursor, err := Page(context.Background(), "", QueryParams{Types: []string{TypeCreated}}, client)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Empty(t, cursor)

	log, err := Get(context.Background(), "3", client)
	require.NoError(t, err)
	require.Equal(t, "56", log.Payment.ID)
}
