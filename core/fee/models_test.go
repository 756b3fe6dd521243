package fee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsTotal(t *testing.T) {
	items := Items{
		{Name: "Admission", Amount: 50000, Frequency: FrequencyOneTime},
		{Name: "Tuition", Amount: 10000, Frequency: FrequencyMonthly},
		{Name: "Exams", Amount: 2500, Frequency: FrequencyTerm},
		{Name: "Library", Amount: 3000, Frequency: FrequencyAnnual},
	}
	assert.Equal(t, int64(50000+120000+7500+3000), items.Total())
	assert.Equal(t, int64(0), Items(nil).Total())
}

func TestItemsScanValue(t *testing.T) {
	val, err := Items(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", val)

	var items Items
	require.NoError(t, items.Scan(`[{"name":"Tuition","amount":100,"frequency":"MONTHLY"}]`))
	assert.Equal(t, Items{{Name: "Tuition", Amount: 100, Frequency: FrequencyMonthly}}, items)

	require.NoError(t, items.Scan(nil))
	assert.Equal(t, Items{}, items)
}
