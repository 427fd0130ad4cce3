// Package api - HTTP surface tests
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cost-reports/core/driver"
	"cost-reports/core/engine"
	"cost-reports/core/types"
	"cost-reports/internal/config"
)

type fakeBackend struct {
	rows []types.AggregateRow
	keys []string
}

func (b *fakeBackend) Aggregate(ctx context.Context, req driver.AggregateRequest) ([]types.AggregateRow, error) {
	var out []types.AggregateRow
	for _, row := range b.rows {
		if req.Range.Contains(row.Date) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (b *fakeBackend) DistinctKeys(ctx context.Context, req driver.KeyRequest) ([]string, error) {
	return b.keys, nil
}

func (b *fakeBackend) EnabledTagKeys(ctx context.Context) ([]string, error) {
	return []string{"app", "env"}, nil
}

func newTestServer() *Server {
	backend := &fakeBackend{
		rows: []types.AggregateRow{{
			Date:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			GroupValues: []types.GroupValue{{Dimension: types.PlainDimension("project"), Value: "shop"}},
			Metrics: map[string]decimal.Decimal{
				types.MetricInfra:     decimal.NewFromInt(7),
				types.MetricSup:       decimal.NewFromInt(2),
				types.MetricMarkup:    decimal.NewFromInt(1),
				types.MetricCostTotal: decimal.NewFromInt(10),
			},
		}},
		keys: []string{"shop", "api"},
	}
	eng := engine.New(backend, backend, config.QueryConfig{MaxLimit: 100, Currency: "USD"})
	return NewServer(eng, "test")
}

func get(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestReportEndpoint(t *testing.T) {
	rec, body := get(t, newTestServer(),
		"/api/v1/reports/costs?group_by[project]=*&start_date=2025-07-01&end_date=2025-07-01")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	meta := body["meta"].(map[string]interface{})
	require.EqualValues(t, 1, meta["count"])

	data := body["data"].([]interface{})
	require.Len(t, data, 1)

	links := body["links"].(map[string]interface{})
	for _, name := range []string{"first", "previous", "next", "last"} {
		_, present := links[name]
		require.True(t, present, "links must always carry %s", name)
	}
}

func TestReportEndpointValidationError(t *testing.T) {
	rec, body := get(t, newTestServer(), "/api/v1/reports/costs?group_by[pod]=*")

	require.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := body["error"].(map[string]interface{})
	require.Equal(t, "VALIDATION_ERROR", errBody["code"])
	require.Equal(t, "group_by[pod]", errBody["field"])
	require.NotEmpty(t, errBody["request_id"])
}

func TestReportEndpointUnknownType(t *testing.T) {
	rec, _ := get(t, newTestServer(), "/api/v1/reports/network")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportEndpointKeyOnly(t *testing.T) {
	rec, body := get(t, newTestServer(), "/api/v1/reports/costs?group_by[project]=*&key_only=true")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []interface{}{"api", "shop"}, body["data"])
	meta := body["meta"].(map[string]interface{})
	require.EqualValues(t, 2, meta["count"])
}

func TestTagKeysEndpoint(t *testing.T) {
	rec, body := get(t, newTestServer(), "/api/v1/tag-keys")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []interface{}{"app", "env"}, body["data"])
}

func TestHealthEndpoint(t *testing.T) {
	rec, body := get(t, newTestServer(), "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "test", body["version"])
}

func TestVersionEndpoint(t *testing.T) {
	rec, body := get(t, newTestServer(), "/version")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "v1", body["api_version"])
	require.Len(t, body["reports"], 4)
}
