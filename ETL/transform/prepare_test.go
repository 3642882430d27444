package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

func TestPrepareForLoad(t *testing.T) {
	table := models.NewTable(TableIndicatorsByCountry,
		models.Column{Name: ColCountry, Kind: models.KindString},
		models.Column{Name: "a", Kind: models.KindFloat},
		models.Column{Name: "b", Kind: models.KindFloat},
	)
	table.Rows = []models.Row{
		{"FRA", 1.234567, 2.0},
		{"JPN", nil, 2.0},
		{"BRA", math.NaN(), 2.0},
		{"ARG", math.Inf(1), 2.0},
		{nil, 0.5, math.NaN()},
	}

	prepared, stats, err := PrepareForLoad(models.OutputTable{
		Table:           table,
		Destination:     TableIndicatorsByCountry,
		RequiredNumeric: []string{"a"},
		Precision:       4,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Dropped)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, []models.Row{
		{"FRA", 1.2346, 2.0},
		{nil, 0.5, nil},
	}, prepared.Table.Rows)
	assert.Len(t, table.Rows, 5, "source table is left untouched")
}

func TestPrepareForLoadMissingTable(t *testing.T) {
	_, _, err := PrepareForLoad(models.OutputTable{Destination: "x"})
	assert.ErrorIs(t, err, models.ErrMissingPrerequisite)
}

func TestPrepareForLoadUnknownRequiredColumn(t *testing.T) {
	table := models.NewTable("t", models.Column{Name: "a", Kind: models.KindFloat})
	_, _, err := PrepareForLoad(models.OutputTable{Table: table, RequiredNumeric: []string{"b"}, Precision: NoRounding})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}
