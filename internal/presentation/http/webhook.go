package httppresentation

import (
	"io"
	"net/http"

	appwebhook "github.com/Zhima-Mochi/minishop-checkout/internal/application/webhook"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/julienschmidt/httprouter"
)

const maxWebhookBody = 1 << 20

// handlePaymentWebhook always answers 200; the ack body carries the outcome.
func (h *Handler) handlePaymentWebhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		logctx.From(r.Context()).Warn("webhook_body_unreadable", observability.F("error", err.Error()))
	}
	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	ack := h.svc.Webhooks.Handle(r.Context(), appwebhook.Notification{
		Signature: r.Header.Get("x-signature"),
		RequestID: r.Header.Get("x-request-id"),
		Body:      body,
		Query:     query,
	})
	writeJSON(w, http.StatusOK, ack)
}
