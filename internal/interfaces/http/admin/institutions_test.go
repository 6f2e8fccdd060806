package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	adminapp "github.com/beanscene/api/internal/admin/application"
	publicapp "github.com/beanscene/api/internal/public/application"
	publicdomain "github.com/beanscene/api/internal/public/domain"
)

type memoryTable struct {
	rows []publicdomain.Institution
}

func (m *memoryTable) List(context.Context) ([]publicdomain.Institution, error) {
	return append([]publicdomain.Institution(nil), m.rows...), nil
}

func (m *memoryTable) Upsert(_ context.Context, inst publicdomain.Institution) error {
	for i := range m.rows {
		if m.rows[i].Name == inst.Name {
			m.rows[i] = inst
			return nil
		}
	}
	m.rows = append(m.rows, inst)
	return nil
}

func newAdminRouter(t *testing.T) (chi.Router, *publicapp.CoordinateResolver) {
	t.Helper()
	resolver := publicapp.NewCoordinateResolver(nil)
	h := NewHandler(Config{
		Logger:       zap.NewNop(),
		Institutions: adminapp.NewInstitutionService(&memoryTable{}, resolver),
	})
	r := chi.NewRouter()
	r.Route("/admin", h.Register)
	return r, resolver
}

func TestInstitutionUpsertThenList(t *testing.T) {
	router, resolver := newAdminRouter(t)

	body := `{"aliases":["Reed"],"lat":45.4812,"lng":-122.6308,"zoom":16,"bounds":{"minLat":45.47,"maxLat":45.49,"minLng":-122.64,"maxLng":-122.62}}`
	req := httptest.NewRequest(http.MethodPut, "/admin/institutions/Reed%20College", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"Reed College"`)
	inst, ok := resolver.Lookup("reed")
	require.True(t, ok)
	assert.Equal(t, "Reed College", inst.Name)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/institutions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"aliases":["Reed"]`)
}

func TestInstitutionUpsertRejectsBadCoordinates(t *testing.T) {
	router, _ := newAdminRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/admin/institutions/Nowhere", strings.NewReader(`{"lat":120,"lng":0}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "latitude")
}
