package brcodepayment

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

const sampleBrcode = "00020101021226890014br.gov.bcb.pix2567brcode-h.sandbox.starkinfra.com/v2/1234567890abcdef5204000053039865802BR5915Stark Bank S.A.6009Sao Paulo62070503***6304ABCD"

func examples(n int) []BrcodePayment {
	out := make([]BrcodePayment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, BrcodePayment{
			Brcode:      sampleBrcode,
			TaxID:       "20.018.183/0001-80",
			Description: "Tony Stark's Suit",
			Amount:      int64(7654321 + i),
			Scheduled:   resource.NewDateTime(time.Now().Add(24 * time.Hour)),
			Tags:        []string{"Stark", "Suit"},
			Rules:       []Rule{{Key: "resendingLimit", Value: 5}},
		})
	}
	return out
}

func TestCreateListGetCancel(t *testing.T) {
	fake := testutil.NewFakeBank(t)
	fake.Seed(Descriptor.Endpoint(), Descriptor.Key(), Descriptor.PluralKey())
	client, err := rest.New(fake.User, rest.WithHost(fake.URL()))
	require.NoError(t, err)
	ctx := context.Background()

	created, err := Create(ctx, examples(12), client)
	require.NoError(t, err)
	require.Len(t, created, 12)
	for i, payment := range created {
		require.NotEmpty(t, payment.ID)
		require.Equal(t, int64(7654321+i), payment.Amount)
		require.Equal(t, []Rule{{Key: "resendingLimit", Value: 5}}, payment.Rules)
	}
	require.Equal(t, "/v2/brcode-payment", fake.Requests()[0].Path)

	listed, err := Query(ctx, QueryParams{Limit: func() *int { n := 10; return &n }()}, client).Collect()
	require.NoError(t, err)
	require.Len(t, listed, 10)

	stream := Query(ctx, QueryParams{}, client)
	require.True(t, stream.Next())
	first, err := Get(ctx, stream.Item().ID, client)
	require.NoError(t, err)
	require.Equal(t, stream.Item().ID, first.ID)

	for payment, err := range Query(ctx, QueryParams{Status: StatusCreated, Limit: func() *int { n := 1; return &n }()}, client).All() {
		require.NoError(t, err)
		require.Equal(t, StatusCreated, payment.Status)
		updated, err := Update(ctx, payment.ID, Patch{Status: StatusCanceled}, client)
		require.NoError(t, err)
		require.Equal(t, StatusCanceled, updated.Status)
	}
}

func TestCreateRequiresPayments(t *testing.T) {
	fake := testutil.NewFakeBank(t)
	client, err := rest.New(fake.User, rest.WithHost(fake.URL()))
	require.NoError(t, err)

	_, err = Create(context.Background(), nil, client)
	require.True(t, errs.IsInput(err))
	_, err = Update(context.Background(), "1", Patch{}, client)
	require.True(t, errs.IsInput(err))
	require.Empty(t, fake.Requests())
}
