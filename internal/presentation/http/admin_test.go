package httppresentation

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminOrderListingAndStatistics(t *testing.T) {
	s := newServer(t, nil)
	admin := s.token(t, "admin-1", "admin")
	for _, u := range []string{"u-1", "u-2"} {
		rec := s.do(t, http.MethodPost, "/api/v1/orders", s.token(t, u, "customer"), `{"delivery_type":"pickup"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := s.do(t, http.MethodGet, "/api/v1/admin/orders?user_id=u-2", admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[pageView[orderView]](t, rec)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "u-2", page.Items[0].UserID)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/orders?from=2025-03-14&to=2025-03-14&status=pending", admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[pageView[orderView]](t, rec).Total)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/orders?from=2025-03-15T00:00:00Z", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[pageView[orderView]](t, rec).Total)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/orders?from=yesterday", admin, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorResponse](t, rec)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "from", body.Fields[0].Field)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/orders?status=teleported", admin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/orders/statistics", admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decode[statisticsView](t, rec)
	assert.Equal(t, 2, st.TotalOrders)
	assert.Equal(t, 2, st.ByStatus["pending"])
	assert.Equal(t, 2, st.Today)
	assert.Equal(t, 2, st.ThisMonth)
	assert.Zero(t, st.SettledOrders)
	assert.True(t, st.Revenue.IsZero())

	customer := s.token(t, "u-1", "customer")
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/admin/orders", customer, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/admin/orders/statistics", customer, "").Code)
}

func TestAdminSearchProviderPayments(t *testing.T) {
	s := newServer(t, nil)
	admin := s.token(t, "admin-1", "admin")

	rec := s.do(t, http.MethodGet, "/api/v1/admin/payments/search/o-1", admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	found := decode[struct {
		Results []remotePaymentView `json:"results"`
	}](t, rec)
	require.Len(t, found.Results, 1)
	assert.Equal(t, "555", found.Results[0].ID)
	assert.Equal(t, "approved", found.Results[0].Status)
	assert.Equal(t, "1000", found.Results[0].Amount.String())

	rec = s.do(t, http.MethodGet, "/api/v1/admin/payments/search/o-9", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/admin/payments/search/o-1", s.token(t, "u-1", "customer"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
