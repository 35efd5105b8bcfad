package user

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/starkbank/errs"
	"github.com/coachpo/starkbank/pkg/key"
)

func testPEM(t *testing.T) string {
	t.Helper()
	privatePEM, _, err := key.Create("")
	require.NoError(t, err)
	return privatePEM
}

func TestProjectAccessID(t *testing.T) {
	p, err := NewProject(Sandbox, " 5656565656565656 ", testPEM(t))
	require.NoError(t, err)
	require.Equal(t, "project/5656565656565656", p.AccessID())
	require.Equal(t, Sandbox, p.Environment())
	require.NotNil(t, p.PrivateKey())
}

func TestOrganizationAccessID(t *testing.T) {
	o, err := NewOrganization(Production, "4545454545454545", testPEM(t), "")
	require.NoError(t, err)
	require.Equal(t, "organization/4545454545454545", o.AccessID())

	scoped := o.Replace("1212121212121212")
	require.Equal(t, "organization/4545454545454545/workspace/1212121212121212", scoped.AccessID())
	require.Equal(t, "organization/4545454545454545", o.AccessID())
}

func TestConstructorsValidateInput(t *testing.T) {
	_, err := NewProject(Sandbox, "", testPEM(t))
	require.True(t, errs.IsInput(err))

	_, err = NewProject("staging", "1", testPEM(t))
	require.True(t, errs.IsInput(err))

	_, err = NewOrganization(Sandbox, "1", "not a key", "")
	require.True(t, errs.IsInput(err))
}

func TestEnvironmentHost(t *testing.T) {
	require.Equal(t, "https://api.starkbank.com/", Production.Host())
	require.Equal(t, "https://sandbox.api.starkbank.com/", Sandbox.Host())

	env, err := ParseEnvironment(" Production ")
	require.NoError(t, err)
	require.Equal(t, Production, env)
}
