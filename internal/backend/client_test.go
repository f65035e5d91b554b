package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/minefleet-dispatch/internal/config"
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.BackendConfig{BaseURL: srv.URL + "/", PageLimit: 2}, zerolog.Nop())
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestDoForwardsToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"success": true, "data": []interface{}{}})
	})

	_, err := c.ActiveHauling(WithToken(context.Background(), "abc"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", gotAuth)
}

func TestDoReturnsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, map[string]interface{}{
			"success": false, "statusCode": 400, "message": "Truck is not available",
		})
	})

	_, err := c.CreateHauling(context.Background(), model.HaulingInput{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Truck is not available", apiErr.ServerMessage())
	assert.False(t, IsNotFound(err))
}

func TestDoUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c := New(config.BackendConfig{BaseURL: srv.URL}, zerolog.Nop())

	_, err := c.ListTrucks(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestListAllFollowsPages(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trucks", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		n, _ := strconv.Atoi(page)
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    []model.Truck{{ID: "t" + page + "a"}, {ID: "t" + page + "b"}},
			"meta":    Meta{Page: n, Limit: 2, Total: 6, TotalPages: 3},
		})
	})

	trucks, err := c.ListTrucks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, pages)
	assert.Len(t, trucks, 6)
	assert.Equal(t, "t3b", trucks[5].ID)
}

func TestLoadCatalog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var data interface{}
		switch r.URL.Path {
		case "/trucks":
			data = []model.Truck{{ID: "t1", Status: model.EquipmentStandby, IsActive: true}}
		case "/excavators":
			data = []model.Excavator{{ID: "e1"}}
		case "/operators":
			data = []model.Operator{{ID: "o1"}}
		case "/mining-sites":
			data = []model.MiningSite{{ID: "s1"}}
		case "/locations/loading-points":
			data = []model.LoadingPoint{{ID: "lp1", MiningSiteID: "s1"}}
		case "/locations/dumping-points":
			data = []model.DumpingPoint{{ID: "dp1", MiningSiteID: "s1"}}
		case "/locations/road-segments":
			data = []model.RoadSegment{{ID: "r1", Distance: 4.5}}
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
	})

	catalog, err := c.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog.Trucks, 1)
	assert.Len(t, catalog.Operators, 1)
	lp, ok := catalog.LoadingPoint("lp1")
	require.True(t, ok)
	assert.Equal(t, "s1", lp.MiningSiteID)
	assert.Equal(t, 4.5, catalog.RoadSegments[0].Distance)
}

func TestActivityNumbersForDay(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "HA-20240301-", r.URL.Query().Get("search"))
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": []model.HaulingActivity{
				{ID: "a", ActivityNumber: "HA-20240301-003"},
				{ID: "b", ActivityNumber: "HA-20240229-010"},
			},
		})
	})

	numbers, err := c.ActivityNumbersForDay(context.Background(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"HA-20240301-003"}, numbers)
}

func TestCreateHaulingOmitsNilFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var body map[string]interface{}
		assert.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "t1", body["truckId"])
		assert.NotContains(t, body, "excavatorId")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeJSON(t, w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    model.HaulingActivity{ID: "new-1", ActivityNumber: "HA-20240301-001"},
		})
	})

	truck := "t1"
	created, err := c.CreateHauling(context.Background(), model.HaulingInput{TruckID: &truck})
	require.NoError(t, err)
	assert.Equal(t, "new-1", created.ID)
}

func TestQuickUpdateAndDelete(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"id": "h1"}})
	})

	load := 30.0
	_, err := c.QuickUpdateHauling(context.Background(), "h1", model.QuickUpdate{LoadWeight: &load})
	require.NoError(t, err)
	require.NoError(t, c.DeleteHauling(context.Background(), "h1"))
	assert.Equal(t, []string{"PATCH /hauling/h1/quick-update", "DELETE /hauling/h1"}, calls)
}

func TestListProductionFilters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2024-03-01", q.Get("startDate"))
		assert.Equal(t, "2024-03-01", q.Get("endDate"))
		assert.Equal(t, "SHIFT_1", q.Get("shift"))
		assert.Equal(t, "s1", q.Get("miningSiteId"))
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    []model.ProductionRecord{{ID: "p1", RecordDate: "2024-03-01T00:00:00.000Z"}},
		})
	})

	records, err := c.ListProduction(context.Background(), model.ProductionQuery{
		Date: "2024-03-01", Shift: model.Shift1, MiningSiteID: "s1",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "p1", records[0].ID)
}

func TestAIHealthOffline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, map[string]interface{}{"success": false, "message": "down"})
	})

	health := c.AIHealth(context.Background())
	assert.False(t, health.Online())
	assert.Contains(t, health.Error, "down")
}

func TestAIHealthOnline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/health", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]string{"status": "online", "service": "Mining AI"},
		})
	})

	health := c.AIHealth(context.Background())
	assert.True(t, health.Online())
	assert.Equal(t, "Mining AI", health.Service)
}

func TestApplyHaulingRecommendationCollectsIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Hauling activities created successfully",
			"data": map[string]interface{}{
				"activities": []model.HaulingActivity{{ID: "h1"}, {ID: "h2"}},
			},
		})
	})

	result, err := c.ApplyHaulingRecommendation(context.Background(), ApplyRequest{Action: ApplyCreate})
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2"}, result.ActivityIDs)
	assert.Equal(t, ApplyCreate, result.Action)
	assert.Equal(t, "Hauling activities created successfully", result.Message)
}

func TestRecommendationsReturnsRawData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"top_3_strategies": []interface{}{}},
		})
	})

	raw, err := c.Recommendations(context.Background(), RecommendationRequest{Shift: model.Shift1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"top_3_strategies":[]}`, string(raw))
}
