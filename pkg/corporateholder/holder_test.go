package corporateholder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/starkbank/errs"
	"github.com/coachpo/starkbank/internal/testutil"
	"github.com/coachpo/starkbank/pkg/rest"
)

func exampleHolder(name string) CorporateHolder {
	return CorporateHolder{
		Name:        name,
		Tags:        []string{"Traveler Employee"},
		Permissions: []Permission{{OwnerID: "5656565656565656", OwnerType: "project"}},
		Rules: []Rule{{
			Name:         "Travel",
			Amount:       900000,
			Interval:     "week",
			CurrencyCode: "BRL",
		}},
	}
}

func TestHolderLifecycle(t *testing.T) {
	fake := testutil.NewFakeBank(t)
	fake.Seed(Descriptor.Endpoint(), Descriptor.Key(), Descriptor.PluralKey())
	client, err := rest.New(fake.User, rest.WithHost(fake.URL()))
	require.NoError(t, err)
	ctx := context.Background()

	created, err := Create(ctx, []CorporateHolder{exampleHolder("Jaime Lannister"), exampleHolder("Brienne of Tarth")}, []string{"rules"}, client)
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, "rules", fake.Requests()[0].Query.Get("expand"))
	require.Equal(t, "project", created[0].Permissions[0].OwnerType)
	require.Equal(t, int64(900000), created[0].Rules[0].Amount)
	require.NotContains(t, fake.Requests()[0].Body, `"created"`)

	got, err := Get(ctx, created[1].ID, []string{"rules"}, client)
	require.NoError(t, err)
	require.Equal(t, "Brienne of Tarth", got.Name)

	holders, err := Query(ctx, QueryParams{Tags: []string{"Traveler Employee"}, Expand: []string{"rules"}}, client).Collect()
	require.NoError(t, err)
	require.Len(t, holders, 2)

	updated, err := Update(ctx, created[0].ID, Patch{Name: "Jaime Lannister II", Tags: []string{"Kingsguard"}}, client)
	require.NoError(t, err)
	require.Equal(t, "Jaime Lannister II", updated.Name)
	require.Equal(t, []string{"Kingsguard"}, updated.Tags)

	canceled, err := Cancel(ctx, created[0].ID, client)
	require.NoError(t, err)
	require.Equal(t, StatusCanceled, canceled.Status)

	page, cursor, err := Page(ctx, "", QueryParams{Status: []string{StatusCanceled}}, client)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Empty(t, cursor)

	_, err = Cancel(ctx, "0", client)
	require.True(t, errs.IsNotFound(err))
}
