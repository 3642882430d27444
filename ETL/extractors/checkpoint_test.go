package extractors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/remotework_health_etl/ETL/config"
	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

func TestCheckpointRoundTrip(t *testing.T) {
	checkpoint := NewCheckpoint(filepath.Join(t.TempDir(), "data"))
	year := 2019
	value := "15.9 [15.3-16.8]"
	records := []models.IndicatorRecord{
		{IndicatorCode: "WHOSIS_000015", Country: "FRA", Year: &year, Value: &value},
	}

	require.NoError(t, checkpoint.Save(records))

	loaded, err := checkpoint.Load()
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestCheckpointMissing(t *testing.T) {
	checkpoint := NewCheckpoint(t.TempDir())

	_, err := checkpoint.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMissingPrerequisite))
}

func TestCheckpointCorrupted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RawCheckpointFile), []byte("not snappy"), 0o644))

	_, err := NewCheckpoint(dir).Load()
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrMissingPrerequisite))
}

func newCoordinator(t *testing.T, apiURL string) (*Extractor, config.ETLConfig) {
	t.Helper()
	dir := t.TempDir()
	surveyPath := filepath.Join(dir, "survey.csv")
	require.NoError(t, os.WriteFile(surveyPath, []byte(surveyCSV), 0o644))

	cfg := config.GetConfig()
	cfg.SurveyPath = surveyPath
	cfg.CheckpointDir = filepath.Join(dir, "data")
	cfg.API = config.APIConfig{
		BaseURL:        apiURL,
		IndicatorCodes: []string{"MH_9"},
		Timeout:        time.Second,
		Concurrency:    2,
	}
	return NewExtractor(cfg, nil, utils.NewETLLoggerWithWriter(&bytes.Buffer{}, false)), cfg
}

func TestExtractWritesCheckpointForLaterRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, mh9Payload)
	}))
	defer srv.Close()

	extractor, _ := newCoordinator(t, srv.URL)
	data, err := extractor.Extract(context.Background(), Options{})
	require.NoError(t, err)
	assert.Len(t, data.Survey, 2)
	assert.Len(t, data.Indicators, 2)
	assert.Empty(t, data.FailedCodes)

	srv.Close()
	fromCheckpoint, err := extractor.Extract(context.Background(), Options{FromCheckpoint: true})
	require.NoError(t, err)
	assert.Equal(t, data.Indicators, fromCheckpoint.Indicators)
}

func TestFailedPullKeepsPreviousCheckpoint(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, mh9Payload)
	}))
	defer srv.Close()

	extractor, _ := newCoordinator(t, srv.URL)
	good, err := extractor.Extract(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, good.Indicators, 2)

	failing.Store(true)
	failed, err := extractor.Extract(context.Background(), Options{})
	require.NoError(t, err)
	assert.Empty(t, failed.Indicators)
	assert.Equal(t, []string{"MH_9"}, failed.FailedCodes)

	fromCheckpoint, err := extractor.Extract(context.Background(), Options{FromCheckpoint: true})
	require.NoError(t, err)
	assert.Equal(t, good.Indicators, fromCheckpoint.Indicators)
}

// partialServer отвечает на первый запрос MH_1 данными, на последующие - ошибкой
func partialServer(t *testing.T) *httptest.Server {
	t.Helper()
	var served atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/MH_1" {
			fmt.Fprint(w, mh9Payload)
			return
		}
		if !served.CompareAndSwap(false, true) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"value":[{"SpatialDim":"FRA","TimeDim":2020,"Value":"Yes"}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPartialPullCheckpointPolicy(t *testing.T) {
	cases := []struct {
		name      string
		overwrite bool
		want      int
	}{
		{"keeps complete pull", false, 3},
		{"overwrites when allowed", true, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := partialServer(t)
			_, cfg := newCoordinator(t, srv.URL)
			cfg.API.IndicatorCodes = []string{"MH_9", "MH_1"}
			cfg.CheckpointOverwritePartial = tc.overwrite
			extractor := NewExtractor(cfg, nil, utils.NewETLLoggerWithWriter(&bytes.Buffer{}, false))

			complete, err := extractor.Extract(context.Background(), Options{})
			require.NoError(t, err)
			require.Len(t, complete.Indicators, 3)

			partial, err := extractor.Extract(context.Background(), Options{})
			require.NoError(t, err)
			require.Len(t, partial.Indicators, 2)
			assert.Equal(t, []string{"MH_1"}, partial.FailedCodes)

			fromCheckpoint, err := extractor.Extract(context.Background(), Options{FromCheckpoint: true})
			require.NoError(t, err)
			assert.Len(t, fromCheckpoint.Indicators, tc.want)
		})
	}
}

func TestPartialPullCreatesFirstCheckpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/MH_1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, mh9Payload)
	}))
	defer srv.Close()

	_, cfg := newCoordinator(t, srv.URL)
	cfg.API.IndicatorCodes = []string{"MH_9", "MH_1"}
	extractor := NewExtractor(cfg, nil, utils.NewETLLoggerWithWriter(&bytes.Buffer{}, false))

	_, err := extractor.Extract(context.Background(), Options{})
	require.NoError(t, err)

	fromCheckpoint, err := extractor.Extract(context.Background(), Options{FromCheckpoint: true})
	require.NoError(t, err)
	assert.Len(t, fromCheckpoint.Indicators, 2)
}

func TestExtractWithoutCheckpointUsesEmptyPlaceholder(t *testing.T) {
	extractor, _ := newCoordinator(t, "http://127.0.0.1:0")

	data, err := extractor.Extract(context.Background(), Options{FromCheckpoint: true})
	require.NoError(t, err)
	assert.NotNil(t, data.Indicators)
	assert.Empty(t, data.Indicators)
	assert.Len(t, data.Survey, 2)
}

func TestExtractMissingSurveyIsStageFailure(t *testing.T) {
	extractor, cfg := newCoordinator(t, "http://127.0.0.1:0")
	require.NoError(t, os.Remove(cfg.SurveyPath))

	_, err := extractor.Extract(context.Background(), Options{FromCheckpoint: true})
	require.Error(t, err)

	var stageErr *models.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageExtract, stageErr.Stage)
	assert.ErrorIs(t, err, models.ErrMissingPrerequisite)
}
