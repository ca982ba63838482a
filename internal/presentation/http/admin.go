package httppresentation

import (
	"net/http"
	"time"

	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"
)

const dateOnly = "2006-01-02"

// parseBound reads an RFC 3339 timestamp or a calendar date. A date used as the
// upper bound covers the whole day.
func parseBound(field, v string, upper bool) (time.Time, apperr.Check) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return time.Time{}, &apperr.FieldError{Field: field, Reason: "must be YYYY-MM-DD or RFC 3339"}
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func listFilterFrom(r *http.Request) (apporder.ListFilter, error) {
	q := r.URL.Query()
	f := apporder.ListFilter{
		Status:        q.Get("status"),
		PaymentStatus: q.Get("payment_status"),
		UserID:        q.Get("user_id"),
	}
	var fromErr, toErr apperr.Check
	f.From, fromErr = parseBound("from", q.Get("from"), false)
	f.To, toErr = parseBound("to", q.Get("to"), true)
	return f, apperr.Validate("invalid order filter", fromErr, toErr)
}

func (h *Handler) handleAdminListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	f, err := listFilterFrom(r)
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	page, err := h.svc.Orders.ListAll(r.Context(), f, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	out := pageView[orderView]{Items: make([]orderView, len(page.Orders)), Total: page.Total, Page: page.Page, Limit: page.Limit}
	for i, o := range page.Orders {
		out.Items[i] = toOrderView(o)
	}
	writeJSON(w, http.StatusOK, out)
}

type statisticsView struct {
	TotalOrders   int             `json:"total_orders"`
	ByStatus      map[string]int  `json:"by_status"`
	SettledOrders int             `json:"settled_orders"`
	Revenue       decimal.Decimal `json:"revenue"`
	Today         int             `json:"today"`
	ThisMonth     int             `json:"this_month"`
}

func (h *Handler) handleOrderStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	st, err := h.svc.Orders.Statistics(r.Context())
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	v := statisticsView{
		TotalOrders:   st.TotalOrders,
		ByStatus:      make(map[string]int, len(st.ByStatus)),
		SettledOrders: st.SettledOrders,
		Revenue:       st.Revenue,
		Today:         st.Today,
		ThisMonth:     st.ThisMonth,
	}
	for s, n := range st.ByStatus {
		v.ByStatus[string(s)] = n
	}
	writeJSON(w, http.StatusOK, v)
}

type remotePaymentView struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail,omitempty"`
	PaymentMethodID   string          `json:"payment_method_id,omitempty"`
	ExternalReference string          `json:"external_reference"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency,omitempty"`
}

func toRemotePaymentView(p dompay.RemotePayment) remotePaymentView {
	return remotePaymentView{
		ID:                p.ID,
		Status:            string(p.Status),
		StatusDetail:      p.StatusDetail,
		PaymentMethodID:   p.PaymentMethodID,
		ExternalReference: p.ExternalReference,
		Amount:            p.Amount,
		Currency:          p.Currency,
	}
}

func (h *Handler) handleSearchProviderPayments(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	found, err := h.svc.Payments.SearchProvider(r.Context(), ps.ByName("externalReference"))
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	out := make([]remotePaymentView, len(found))
	for i, p := range found {
		out[i] = toRemotePaymentView(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}
