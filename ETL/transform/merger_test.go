package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

func regionTable(name string, valueColumn string, rows ...models.Row) *models.Table {
	table := models.NewTable(name,
		models.Column{Name: ColRegion, Kind: models.KindString},
		models.Column{Name: valueColumn, Kind: models.KindFloat},
	)
	table.Rows = rows
	return table
}

func TestMergeLeftKeepsEveryLeftRow(t *testing.T) {
	left := regionTable("opros", "score",
		models.Row{"Europe", 0.5},
		models.Row{"Oceania", 0.7},
		models.Row{nil, 0.1},
		models.Row{"Europe", 0.9},
	)
	right := regionTable("mh9", "MH_9_avg",
		models.Row{"Europe", 10.0},
		models.Row{"Asia", 20.0},
		models.Row{nil, 7.0},
	)

	merged, err := MergeLeft(left, right, ColRegion)
	require.NoError(t, err)

	assert.Equal(t, "opros", merged.Name)
	require.Equal(t, left.Len(), merged.Len())
	assert.Equal(t, []models.Row{
		{"Europe", 0.5, 10.0},
		{"Oceania", 0.7, nil},
		{nil, 0.1, nil},
		{"Europe", 0.9, 10.0},
	}, merged.Rows)
}

func TestMergeLeftRenamesCollidingColumns(t *testing.T) {
	left := regionTable("a", "value", models.Row{"Asia", 1.0})
	right := regionTable("b", "value", models.Row{"Asia", 2.0})

	merged, err := MergeLeft(left, right, ColRegion)
	require.NoError(t, err)
	assert.Equal(t, []string{ColRegion, "value", "b_value"}, merged.ColumnNames())
	assert.Equal(t, models.Row{"Asia", 1.0, 2.0}, merged.Rows[0])
}

func TestMergeLeftRejectsKindMismatch(t *testing.T) {
	left := models.NewTable("left",
		models.Column{Name: ColCountry, Kind: models.KindString},
		models.Column{Name: ColYear, Kind: models.KindInt},
	)
	right := models.NewTable("right",
		models.Column{Name: ColCountry, Kind: models.KindString},
		models.Column{Name: ColYear, Kind: models.KindString},
	)

	_, err := MergeLeft(left, right, ColCountry, ColYear)
	assert.ErrorIs(t, err, ErrKeyMismatch)

	_, err = MergeLeft(left, right, "missing")
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestMergeLeftRejectsDuplicateRightKeys(t *testing.T) {
	left := regionTable("left", "x", models.Row{"Asia", 1.0})
	right := regionTable("right", "y", models.Row{"Asia", 1.0}, models.Row{"Asia", 2.0})

	_, err := MergeLeft(left, right, ColRegion)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMergeLeftCompositeKey(t *testing.T) {
	left := models.NewTable("left",
		models.Column{Name: ColCountry, Kind: models.KindString},
		models.Column{Name: ColYear, Kind: models.KindInt},
	)
	left.Rows = []models.Row{{"FRA", int64(2019)}, {"FRA", int64(2020)}}
	right := models.NewTable("right",
		models.Column{Name: ColCountry, Kind: models.KindString},
		models.Column{Name: ColYear, Kind: models.KindInt},
		models.Column{Name: "v", Kind: models.KindFloat},
	)
	right.Rows = []models.Row{{"FRA", int64(2020), 5.0}, {"JPN", int64(2019), 6.0}}

	merged, err := MergeLeft(left, right, ColCountry, ColYear)
	require.NoError(t, err)
	assert.Equal(t, []models.Row{
		{"FRA", int64(2019), nil},
		{"FRA", int64(2020), 5.0},
	}, merged.Rows)
}

func TestMergeChainOrder(t *testing.T) {
	base := regionTable("base", "m", models.Row{"Asia", 1.0})
	first := regionTable("first", "x", models.Row{"Asia", 2.0})
	second := regionTable("second", "x", models.Row{"Asia", 3.0})

	merged, err := MergeChain(base, []string{ColRegion}, first, second)
	require.NoError(t, err)
	assert.Equal(t, []string{ColRegion, "m", "x", "second_x"}, merged.ColumnNames())
	assert.Equal(t, models.Row{"Asia", 1.0, 2.0, 3.0}, merged.Rows[0])
}
