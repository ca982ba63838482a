package httppresentation

import (
	"context"
	"net/http"
	"strconv"
	"time"

	appinv "github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	appshipping "github.com/Zhima-Mochi/minishop-checkout/internal/application/shipping"
	appwebhook "github.com/Zhima-Mochi/minishop-checkout/internal/application/webhook"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/julienschmidt/httprouter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const componentHTTPHandler = "http_server"

// Services are the use cases served over HTTP.
type Services struct {
	CreateOrder      *apporder.CreateOrderUseCase
	Orders           *apporder.Queries
	UpdateStatus     *apporder.UpdateStatusUseCase
	ApplyShipping    *apporder.ApplyShippingUseCase
	Inventory        *appinv.Guard
	CreatePreference *apppay.CreatePreferenceUseCase
	Payments         *apppay.Manager
	Webhooks         *appwebhook.Receiver
	Quote            *appshipping.QuoteUseCase
	Book             *appshipping.BookUseCase
	Track            *appshipping.TrackUseCase
}

type Handler struct {
	svc     Services
	auth    *Authenticator
	limiter *RateLimiter
	log     observability.Logger
	tel     observability.Observability
	tracer  trace.Tracer
}

type middleware func(httprouter.Handle) httprouter.Handle

func NewHandler(svc Services, auth *Authenticator, limiter *RateLimiter, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		svc:     svc,
		auth:    auth,
		limiter: limiter,
		log:     tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:     tel,
		tracer:  otel.Tracer("checkout.http"),
	}
}

func (h *Handler) Router() http.Handler {
	router := httprouter.New()
	authed := []middleware{h.auth.Authenticate}
	admin := []middleware{h.auth.Authenticate, RequireAdmin}
	limited := []middleware{h.auth.Authenticate, h.limiter.Limit}

	h.handle(router, http.MethodGet, "/health", h.handleHealth)
	h.handle(router, http.MethodPost, "/api/v1/webhooks/payments", h.handlePaymentWebhook)

	h.handle(router, http.MethodPost, "/api/v1/orders", h.handleCreateOrder, limited...)
	h.handle(router, http.MethodGet, "/api/v1/orders", h.handleListOrders, authed...)
	h.handle(router, http.MethodGet, "/api/v1/orders/:id", h.handleGetOrder, authed...)
	h.handle(router, http.MethodGet, "/api/v1/orders/:id/payment", h.handleVerifyPayment, authed...)
	h.handle(router, http.MethodPatch, "/api/v1/orders/:id/status", h.handleUpdateStatus, admin...)
	h.handle(router, http.MethodPatch, "/api/v1/orders/:id/shipping-cost", h.handleApplyShipping, admin...)
	h.handle(router, http.MethodGet, "/api/v1/order-numbers/:number", h.handleGetOrderByNumber, admin...)

	h.handle(router, http.MethodGet, "/api/v1/inventory/:productId/availability", h.handleAvailability, authed...)

	h.handle(router, http.MethodPost, "/api/v1/payments", h.handleCreatePreference, limited...)
	h.handle(router, http.MethodGet, "/api/v1/payments", h.handlePaymentHistory, authed...)
	h.handle(router, http.MethodGet, "/api/v1/payments/:id", h.handlePaymentDetail, authed...)
	h.handle(router, http.MethodPost, "/api/v1/payments/:id/sync", h.handleSyncPayment, admin...)
	h.handle(router, http.MethodPost, "/api/v1/payments/:id/cancel", h.handleCancelPayment, authed...)

	h.handle(router, http.MethodGet, "/api/v1/admin/orders", h.handleAdminListOrders, admin...)
	h.handle(router, http.MethodGet, "/api/v1/admin/orders/statistics", h.handleOrderStatistics, admin...)
	h.handle(router, http.MethodGet, "/api/v1/admin/payments/search/:externalReference", h.handleSearchProviderPayments, admin...)

	h.handle(router, http.MethodPost, "/api/v1/shipping/quote", h.handleQuote, authed...)
	h.handle(router, http.MethodPost, "/api/v1/shipping/book", h.handleBook, admin...)
	h.handle(router, http.MethodGet, "/api/v1/shipping/orders/:orderId", h.handleTrack, authed...)

	return router
}

// handle wires a route as Trace → request logger + metrics → access log → middlewares → handler.
func (h *Handler) handle(router *httprouter.Router, method, route string, handle httprouter.Handle, mws ...middleware) {
	for i := len(mws) - 1; i >= 0; i-- {
		handle = mws[i](handle)
	}
	label := method + " " + route
	observe := ObservabilityMiddleware(h.log, func(r *http.Request) string { return r.Header.Get(headerRequestID) }, h.tel)

	router.Handle(method, route, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { handle(w, r, ps) })
		wrapped := h.withTrace(route, observe(h.withAccessLog(inner)))
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), label)))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace starts the server span, continuing a W3C parent from the headers when present.
func (h *Handler) withTrace(template string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := h.tracer.Start(parentCtx,
			routeFromContext(parentCtx),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// queryInt returns the integer query parameter or def when absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}

type routeKey struct{}

// contextWithRoute stores the route template so metrics and logs keep low-cardinality labels.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
