package httppresentation

import (
	"net/http"

	apppay "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/julienschmidt/httprouter"
)

type createPreferenceRequest struct {
	OrderID string `json:"order_id"`
}

func (h *Handler) handleCreatePreference(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createPreferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	res, err := h.svc.CreatePreference.Execute(r.Context(), apppay.CreatePreferenceInput{
		OrderID: req.OrderID,
		Actor:   actorFrom(r.Context()),
	})
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, preferenceView(*res))
}

func (h *Handler) handlePaymentHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := h.svc.Payments.History(r.Context(), actorFrom(r.Context()).UserID,
		queryInt(r, "page", 1), queryInt(r, "limit", 10))
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	out := pageView[paymentView]{Items: make([]paymentView, len(page.Payments)), Total: page.Total, Page: page.Page, Limit: page.Limit}
	for i, p := range page.Payments {
		out.Items[i] = toPaymentView(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handlePaymentDetail(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, err := h.svc.Payments.Detail(r.Context(), actorFrom(r.Context()), ps.ByName("id"))
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDetailView(d))
}

func (h *Handler) handleSyncPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, err := h.svc.Payments.Sync(r.Context(), ps.ByName("id"))
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

func (h *Handler) handleCancelPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, err := h.svc.Payments.Cancel(r.Context(), actorFrom(r.Context()), ps.ByName("id"))
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v, err := h.svc.Payments.VerifyByOrder(r.Context(), actorFrom(r.Context()), ps.ByName("id"))
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVerificationView(v))
}
