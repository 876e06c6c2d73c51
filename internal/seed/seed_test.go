package seed

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/bizdesk/internal/core/domain"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestLoadBuildsState(t *testing.T) {
	doc := `
tier: pro
inventory:
  - id: tea
    name: Tea
    quantity: 5
    cost_price: "210"
    selling_price: "240.50"
sales:
  - { item_id: tea, quantity: 2, ago: 26h }
contacts:
  - { name: Asha, phone: "555", type: customer }
reminders:
  - { title: Call supplier, due_in: -1h }
`
	st, err := Load(strings.NewReader(doc), now)
	require.NoError(t, err)

	assert.Equal(t, domain.TierPro, st.UserTier)
	require.Len(t, st.Inventory, 1)
	assert.Equal(t, "240.5", st.Inventory[0].SellingPrice.String())

	require.Len(t, st.Sales, 1)
	assert.Equal(t, "481", st.Sales[0].TotalAmount.String())
	assert.Equal(t, "61", st.Sales[0].Profit.String())
	assert.Equal(t, now.Add(-26*time.Hour), st.Sales[0].CreatedAt)
	assert.Equal(t, 5, st.Inventory[0].Quantity, "seeded sales are history and leave stock alone")

	require.Len(t, st.Contacts, 1)
	assert.NotEmpty(t, st.Contacts[0].ID)

	require.Len(t, st.Reminders, 1)
	assert.Equal(t, domain.ReminderStatusOverdue, st.Reminders[0].Status(now))
}

func TestLoadEmptyIsFreeTier(t *testing.T) {
	st, err := Load(strings.NewReader(""), now)
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, st.UserTier)
	assert.Empty(t, st.Inventory)
}

func TestLoadRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown field": "inventry: []",
		"unknown tier":  "tier: gold",
		"bad price":     "inventory: [{name: A, quantity: 1, cost_price: abc, selling_price: '1'}]",
		"dangling sale": "sales: [{item_id: nope, quantity: 1, ago: 1h}]",
		"bad contact":   "contacts: [{name: A, phone: '1', type: vendor}]",
		"duplicate id":  "inventory: [{id: a, name: A, cost_price: '1', selling_price: '1'}, {id: a, name: B, cost_price: '1', selling_price: '1'}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc), now)
			assert.Error(t, err)
		})
	}
}

func TestBundledSeedFileLoads(t *testing.T) {
	_, file, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(file), "..", "..", "configs", "seed.yaml")

	st, err := LoadFile(path, now)
	require.NoError(t, err)
	assert.NotEmpty(t, st.Inventory)
	assert.NotEmpty(t, st.Sales)
	assert.NotEmpty(t, st.Contacts)
	assert.NotEmpty(t, st.Reminders)
}
