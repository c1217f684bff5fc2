package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/landuse-contracts/internal/config"
	"github.com/nurpe/landuse-contracts/internal/metrics"
	"github.com/nurpe/landuse-contracts/internal/repository"
	"github.com/nurpe/landuse-contracts/internal/service"
	"github.com/nurpe/landuse-contracts/internal/testutil"
)

func newTestRouter(t *testing.T, ping func(context.Context) error) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewStore(testutil.SQLite(t))
	clock := testutil.NewClock(time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC))
	svc := service.NewContractService(store, &config.Config{Location: time.UTC}, zerolog.Nop(), service.WithClock(clock.Now))

	return NewRouter(RouterConfig{
		Handler: NewHandler(svc, ping, zerolog.Nop()),
		Metrics: metrics.New(),
		Log:     zerolog.Nop(),
	})
}

func do(t *testing.T, r *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var createBody = map[string]any{
	"ward":         "Phường Long Khánh",
	"owner_name":   "Nguyễn Văn A",
	"sheet_number": "12",
	"plot_number":  "345",
}

func TestContractLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := do(t, r, http.MethodPost, "/contracts", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "01/25.HĐ.LK", created["contract_number"])
	assert.Equal(t, "ACTIVE", created["status"])
	id := created["id"].(string)

	rec = do(t, r, http.MethodPost, "/contracts/"+id+"/liquidate", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "01/25.TL.LK", decode(t, rec)["liquidation_number"])

	rec = do(t, r, http.MethodPost, "/contracts/"+id+"/liquidate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", decode(t, rec)["code"])

	rec = do(t, r, http.MethodPost, "/contracts/"+id+"/cancel-liquidation", map[string]any{"reason": "clerical error"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/contracts/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode(t, rec)
	assert.Equal(t, "ACTIVE", view["status"])
	assert.Equal(t, "ACTIVE_LIQUIDATION_REVERSED", view["lifecycle_state"])
	assert.Equal(t, "01/25.TL.LK", view["liquidation_number"])
	assert.Equal(t, true, view["is_liquidation_cancelled"])
	assert.Equal(t, "clerical error", view["cancellation_reason"])

	rec = do(t, r, http.MethodPost, "/contracts/"+id+"/cancel", map[string]any{"reason": "withdrawn"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, r, http.MethodPut, "/contracts/"+id, createBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodGet, "/contracts/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 4)
	assert.Equal(t, "contract cancelled", items[0].(map[string]any)["action"])
	assert.Equal(t, "created", items[3].(map[string]any)["action"])

	rec = do(t, r, http.MethodGet, "/contracts/"+id+"/liquidations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)
}

func TestCreateContractIdempotencyKey(t *testing.T) {
	r := newTestRouter(t, nil)

	first := decode(t, do(t, r, http.MethodPost, "/contracts", createBody, idempotencyHeader, "abc"))
	second := decode(t, do(t, r, http.MethodPost, "/contracts", createBody, idempotencyHeader, "abc"))
	assert.Equal(t, first["id"], second["id"])

	third := decode(t, do(t, r, http.MethodPost, "/contracts", createBody))
	assert.Equal(t, "02/25.HĐ.LK", third["contract_number"])
}

func TestBranchContractWithoutWard(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := do(t, r, http.MethodPost, "/contracts", map[string]any{
		"owner_name":   "Nguyễn Văn A",
		"sheet_number": "12",
		"plot_number":  "345",
		"is_branch":    true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "01/25.HĐ.CNLK", decode(t, rec)["contract_number"])

	rec = do(t, r, http.MethodPost, "/contracts", map[string]any{
		"owner_name":   "Nguyễn Văn A",
		"sheet_number": "12",
		"plot_number":  "345",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode(t, rec)["code"])

	rec = do(t, r, http.MethodGet, "/contracts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"], "the rejected request allocated nothing")
}

func TestListContracts(t *testing.T) {
	r := newTestRouter(t, nil)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/contracts", createBody).Code)
	}

	rec := do(t, r, http.MethodGet, "/contracts?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	assert.EqualValues(t, 3, page["total"])
	items := page["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "03/25.HĐ.LK", items[0].(map[string]any)["contract_number"])

	rec = do(t, r, http.MethodGet, "/contracts?status=liquidated", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["total"])
}

func TestRequestValidation(t *testing.T) {
	r := newTestRouter(t, nil)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing fields", http.MethodPost, "/contracts", map[string]any{"ward": "x"}, http.StatusBadRequest},
		{"blank owner", http.MethodPost, "/contracts", map[string]any{"ward": "x", "owner_name": " ", "sheet_number": "1", "plot_number": "1"}, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/contracts/not-a-uuid", nil, http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/contracts/" + uuid.NewString(), nil, http.StatusNotFound},
		{"missing reason", http.MethodPost, "/contracts/" + uuid.NewString() + "/cancel", map[string]any{}, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/contracts?limit=abc", nil, http.StatusBadRequest},
		{"bad status", http.MethodGet, "/contracts?status=archived", nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, r, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestWardsAndHealth(t *testing.T) {
	r := newTestRouter(t, func(context.Context) error { return nil })

	rec := do(t, r, http.MethodGet, "/wards", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["items"], 5)
	assert.Equal(t, "CNLK", body["branch_code"])

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/healthz", nil).Code)

	rec = do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "contracts_http_requests_total")
}

func TestHealthReportsStorageFailure(t *testing.T) {
	r := newTestRouter(t, func(context.Context) error { return errors.New("down") })

	rec := do(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode(t, rec)["code"])
}
