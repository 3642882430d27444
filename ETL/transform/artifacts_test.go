package transform

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

func artifactFixture() *models.Table {
	table := models.NewTable("mapa_regioes",
		models.Column{Name: ColCountry, Kind: models.KindString},
		models.Column{Name: ColRegion, Kind: models.KindString},
		models.Column{Name: "n", Kind: models.KindInt},
		models.Column{Name: "avg", Kind: models.KindFloat},
	)
	table.Rows = []models.Row{
		{"FRA", "Europe", int64(3), 1.5},
		{"ZZZ", nil, nil, nil},
		{"A,B", "x", int64(-1), 0.1},
	}
	return table
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, artifactFixture()))

	assert.Equal(t, "country,Region,n,avg\nFRA,Europe,3,1.5\nZZZ,,,\n\"A,B\",x,-1,0.1\n", buf.String())
}

func TestSaveArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	require.NoError(t, SaveArtifacts(dir, []*models.Table{artifactFixture(), nil}))

	data, err := os.ReadFile(filepath.Join(dir, "mapa_regioes.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "FRA,Europe,3,1.5")
}
