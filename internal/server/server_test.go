package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formmaster/pro/internal/config"
	"github.com/formmaster/pro/internal/errs"
	"github.com/formmaster/pro/internal/fields"
	"github.com/formmaster/pro/internal/metrics"
	"github.com/formmaster/pro/internal/rbac"
	"github.com/formmaster/pro/internal/schema"
)

// stubDiscovery serves a small fixed schema for handler tests.
type stubDiscovery struct {
	tables map[string]*schema.TableSchema
}

func (s *stubDiscovery) ListTables(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	return names, nil
}

func (s *stubDiscovery) GetTableSchema(ctx context.Context, table string) (*schema.TableSchema, error) {
	ts, ok := s.tables[table]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %s not found", table)
	}
	return ts, nil
}

func (s *stubDiscovery) TableExists(ctx context.Context, table string) (bool, error) {
	_, ok := s.tables[table]
	return ok, nil
}

func testDiscovery() *stubDiscovery {
	return &stubDiscovery{tables: map[string]*schema.TableSchema{
		"personal_details": {
			TableName:   "personal_details",
			DisplayName: "Personal Details",
			Columns: []schema.Column{
				{Name: "id", Type: "integer", PrimaryKey: true},
				{Name: "first_name", Type: "varchar(100)"},
				{Name: "email_address", Type: "varchar(255)", Nullable: true},
			},
		},
	}}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	disc := testDiscovery()
	catalog := fields.NewCatalog(disc, nil)

	return New(config.Default(), Dependencies{
		Catalog:      catalog,
		Checker:      fields.NewChecker(disc, nil),
		Registry:     rbac.DefaultRegistry(),
		Monitor:      metrics.NewMonitor(16, prometheus.NewRegistry()),
		PromRegistry: prometheus.NewRegistry(),
	}, nil)
}

func doRequest(t *testing.T, srv *Server, method, path, roles string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if roles != "" {
		r.Header.Set(rolesHeader, roles)
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	return w
}

func TestListFields(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/fields", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []fields.Field
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	// id is a system column excluded from the catalog.
	require.Len(t, got, 2)
	ids := []string{got[0].ID, got[1].ID}
	assert.Contains(t, ids, "personal_details.first_name")
	assert.Contains(t, ids, "personal_details.email_address")
}

func TestTableFields_UnknownTableSoftFails(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/tables/ghost/fields", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestFieldMetadata_NotFound(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/tables/personal_details/fields/ghost/metadata", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchFields_EmptyQuery(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/fields/search?q=", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestCheckField(t *testing.T) {
	srv := newTestServer(t)

	stored := fields.Field{
		ID:         "personal_details.first_name",
		TableName:  "personal_details",
		ColumnName: "first_name",
		DataType:   fields.TypeText,
	}
	body, err := json.Marshal(stored)
	require.NoError(t, err)

	w := doRequest(t, srv, http.MethodPost, "/api/compatibility/field", "", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	var got fields.CompatibilityResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.IsCompatible)
}

func TestCheckField_MalformedBody(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/compatibility/field", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRBAC_ViewerCannotCreateForms(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/forms", "viewer", `{"name":"x"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBAC_AdminCanInvalidateCache(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/admin/cache/invalidate", "admin", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRBAC_ViewerCannotReadAdmin(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/admin/performance", "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminPerformanceSnapshot(t *testing.T) {
	srv := newTestServer(t)

	// Warm the monitor with one request, then read the snapshot.
	doRequest(t, srv, http.MethodGet, "/api/fields", "", "")

	w := doRequest(t, srv, http.MethodGet, "/api/admin/performance", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []metrics.Sample
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotEmpty(t, got)
	assert.Contains(t, got[0].Op, "GET /api/fields")
	assert.True(t, got[0].OK)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID_Echoed(t *testing.T) {
	srv := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)

	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
}

func TestRequestID_Generated(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/healthz", "", "")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestStatusFromKind(t *testing.T) {
	tests := []struct {
		kind errs.ErrKind
		want int
	}{
		{errs.ErrKindNotFound, http.StatusNotFound},
		{errs.ErrKindInvalidInput, http.StatusBadRequest},
		{errs.ErrKindPermissionDenied, http.StatusForbidden},
		{errs.ErrKindTimeout, http.StatusGatewayTimeout},
		{errs.ErrKindQueryFailed, http.StatusInternalServerError},
		{errs.ErrKindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFromKind(tt.kind))
		})
	}
}

func TestMonitorRecordsFailuresAsNotOK(t *testing.T) {
	srv := newTestServer(t)

	// A panic-free 4xx still counts as OK; only 5xx marks the sample failed.
	doRequest(t, srv, http.MethodGet, "/api/tables/personal_details/fields/ghost/metadata", "", "")

	w := doRequest(t, srv, http.MethodGet, "/api/admin/performance", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []metrics.Sample
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotEmpty(t, got)
	assert.True(t, got[0].OK)
	assert.Less(t, got[0].Duration, time.Second)
}
