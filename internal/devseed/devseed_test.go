package devseed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	doc := `
users:
  - email: admin@example.com
    display_name: Admin
    role: admin
    password: long-enough-pass
subcontractors:
  - name: Ray Plumbing
    phone: "(555) 010-2000"
jobs:
  - customer_name: Dana
    customer_phone: "(555) 201-0001"
    customer_address: 14 Elm St
    issue_description: Leak
    subcontractor: ray plumbing
    sale_price: 250
`
	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, f.Users, 1)
	assert.Equal(t, "admin", f.Users[0].Role)
	require.Len(t, f.Jobs, 1)
	assert.InDelta(t, 250.0, f.Jobs[0].SalePrice, 0.001)
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Users)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("userz: []\n"))
	require.Error(t, err)
}

func TestParse_Validation(t *testing.T) {
	doc := `
users:
  - email: a@example.com
    role: owner
jobs:
  - customer_name: Dana
    subcontractor: Nobody
`
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown role "owner"`)
	assert.Contains(t, err.Error(), `subcontractor "Nobody" is not declared`)
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().validate())
}
