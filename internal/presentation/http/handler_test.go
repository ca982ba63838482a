package httppresentation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	appinv "github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	appwebhook "github.com/Zhima-Mochi/minishop-checkout/internal/application/webhook"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	dominv "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "jwt-test-secret"

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID() string { return fmt.Sprintf("id-%d", s.n.Add(1)) }

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, outbox.Event) error { return nil }

type stubReconciler struct{ calls atomic.Int32 }

func (s *stubReconciler) Execute(context.Context, string) (*apppay.ReconcileResult, error) {
	s.calls.Add(1)
	return &apppay.ReconcileResult{Outcome: apppay.OutcomeApplied}, nil
}

// searchGateway answers provider searches from a fixed result set.
type searchGateway struct {
	dompay.Gateway
	results map[string][]dompay.RemotePayment
}

func (g searchGateway) SearchPayments(_ context.Context, ref string) ([]dompay.RemotePayment, error) {
	return g.results[ref], nil
}

type server struct {
	router     http.Handler
	auth       *Authenticator
	obs        *obstest.Observability
	reconciler *stubReconciler
}

func newServer(t *testing.T, limiter *RateLimiter) *server {
	t.Helper()
	store := memory.NewStore()
	store.PutProduct(&dominv.Product{ID: "p-1", Name: "Kettle", Price: decimal.NewFromInt(1000),
		Stock: 5, TrackInventory: true, IsActive: true, IsAvailable: true})
	store.PutUser(&customer.User{ID: "u-1", Name: "Ana"})
	store.PutUser(&customer.User{ID: "u-2", Name: "Beto"})
	for _, u := range []string{"u-1", "u-2"} {
		store.PutCart(&cart.Cart{ID: "c-" + u, UserID: u, Items: []cart.Item{{ID: "ci-" + u, ProductID: "p-1", Quantity: 1}}})
	}

	obs := obstest.New()
	ids := &seqIDs{}
	guard := appinv.NewGuard(store, fixedClock, obs)
	rec := &stubReconciler{}
	gw := searchGateway{results: map[string][]dompay.RemotePayment{
		"o-1": {{ID: "555", Status: dompay.StatusApproved, ExternalReference: "o-1", Amount: decimal.NewFromInt(1000), Currency: "ARS"}},
	}}
	reconcile := apppay.NewReconcileUseCase(store, gw, memory.NewLocker(), ids, discardPublisher{}, apppay.Config{}, fixedClock, obs)
	svc := Services{
		CreateOrder: apporder.NewCreateOrderUseCase(store, guard, ids, discardPublisher{},
			apporder.Config{TaxRate: decimal.Zero, NumberPrefix: "ORD"}, fixedClock, obs),
		Orders:       apporder.NewQueries(store, fixedClock, obs),
		UpdateStatus: apporder.NewUpdateStatusUseCase(store, fixedClock, obs),
		Inventory:    guard,
		Payments:     apppay.NewManager(store, reconcile, fixedClock, obs),
		Webhooks:     appwebhook.NewReceiver(store, rec, appwebhook.Config{Secret: "whsec"}, fixedClock, obs),
	}
	if limiter == nil {
		limiter = NewRateLimiter(600, 100)
	}
	auth := NewAuthenticator(testSecret)
	return &server{router: NewHandler(svc, auth, limiter, obs).Router(), auth: auth, obs: obs, reconciler: rec}
}

func (s *server) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := s.auth.Sign(userID, role, time.Hour, time.Now())
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthIsPublic(t *testing.T) {
	s := newServer(t, nil)
	rec := s.do(t, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[errorResponse](t, rec).Kind)

	other := NewAuthenticator("another-secret")
	forged, err := other.Sign("u-1", "admin", time.Hour, time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/orders", forged, "").Code)

	expired, err := s.auth.Sign("u-1", "", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/orders", expired, "").Code)
}

func TestCreateAndReadOrder(t *testing.T) {
	s := newServer(t, nil)
	owner := s.token(t, "u-1", "customer")

	rec := s.do(t, http.MethodPost, "/api/v1/orders", owner, `{"delivery_type":"pickup","notes":"front desk"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[orderView](t, rec)
	assert.Equal(t, "u-1", created.UserID)
	assert.True(t, strings.HasPrefix(created.Number, "ORD-"))
	assert.Equal(t, "1000", created.Total.String())
	require.Len(t, created.Items, 1)

	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+created.ID, owner, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+created.ID, s.token(t, "u-2", "customer"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decode[errorResponse](t, rec).Kind)

	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+created.ID, s.token(t, "admin-1", "admin"), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/orders?page=1&limit=5", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[pageView[orderView]](t, rec)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 5, page.Limit)

	rec = s.do(t, http.MethodGet, "/api/v1/orders/missing", owner, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	requests := s.obs.CounterFor(observability.MHTTPRequests)
	assert.Equal(t, 1.0, requests.Value("method=POST,route=POST /api/v1/orders,status=201"))
	assert.Equal(t, 1.0, requests.Value("method=GET,route=GET /api/v1/orders/:id,status=403"))

	access := s.obs.Log.Find("http_access")
	require.NotEmpty(t, access)
}

func TestValidationErrorsCarryFields(t *testing.T) {
	s := newServer(t, nil)
	tok := s.token(t, "u-1", "customer")

	rec := s.do(t, http.MethodPost, "/api/v1/orders", tok, `{"delivery_type":"drone"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "validation", body.Kind)
	require.NotEmpty(t, body.Fields)
	assert.Equal(t, "delivery_type", body.Fields[0].Field)

	rec = s.do(t, http.MethodPost, "/api/v1/orders", tok, `{"delivery_type":"pickup","coupon":"X"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(t, http.MethodPatch, "/api/v1/orders/o-1/status", s.token(t, "u-1", "customer"), `{"status":"paid"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/order-numbers/ORD-1", s.token(t, "admin-1", "admin"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvailability(t *testing.T) {
	s := newServer(t, nil)
	tok := s.token(t, "u-1", "customer")

	rec := s.do(t, http.MethodGet, "/api/v1/inventory/p-1/availability?quantity=9", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[appinv.Availability](t, rec)
	assert.False(t, a.Available)
	assert.Equal(t, 5, a.Stock)
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	s := newServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", strings.NewReader(`{"type":"payment","data":{"id":"123"}}`))
	req.Header.Set("x-signature", "ts=1700000000,v1=deadbeef")
	req.Header.Set("x-request-id", "req-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	ack := decode[appwebhook.Ack](t, rec)
	assert.False(t, ack.Success)
	assert.Equal(t, "req-1", ack.RequestID)
	assert.Zero(t, s.reconciler.calls.Load())

	rec = s.do(t, http.MethodPost, "/api/v1/webhooks/payments", "", `not json`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitPerUser(t *testing.T) {
	s := newServer(t, NewRateLimiter(1, 1))

	first := s.do(t, http.MethodPost, "/api/v1/orders", s.token(t, "u-1", "customer"), `{"delivery_type":"pickup"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := s.do(t, http.MethodPost, "/api/v1/orders", s.token(t, "u-1", "customer"), `{"delivery_type":"pickup"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	other := s.do(t, http.MethodPost, "/api/v1/orders", s.token(t, "u-2", "customer"), `{"delivery_type":"pickup"}`)
	assert.Equal(t, http.StatusCreated, other.Code)
}
