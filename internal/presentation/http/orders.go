package httppresentation

import (
	"net/http"

	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"
)

type createOrderRequest struct {
	DeliveryType      string `json:"delivery_type"`
	ShippingAddressID string `json:"shipping_address_id"`
	Notes             string `json:"notes"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	o, err := h.svc.CreateOrder.Execute(r.Context(), apporder.CreateOrderInput{
		UserID:            actorFrom(r.Context()).UserID,
		DeliveryType:      req.DeliveryType,
		ShippingAddressID: req.ShippingAddressID,
		Notes:             req.Notes,
	})
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderView(o))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := h.svc.Orders.ListForUser(r.Context(), actorFrom(r.Context()).UserID,
		queryInt(r, "page", 1), queryInt(r, "limit", 10))
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

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	o, err := h.svc.Orders.Get(r.Context(), actorFrom(r.Context()), ps.ByName("id"))
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (h *Handler) handleGetOrderByNumber(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	o, err := h.svc.Orders.GetByNumber(r.Context(), ps.ByName("number"))
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

type updateStatusRequest struct {
	Status        string  `json:"status"`
	PaymentStatus *string `json:"payment_status"`
	Notes         *string `json:"notes"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	o, err := h.svc.UpdateStatus.Execute(r.Context(), apporder.UpdateStatusInput{
		OrderID:       ps.ByName("id"),
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		Notes:         req.Notes,
	})
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

type applyShippingRequest struct {
	Cost decimal.Decimal `json:"cost"`
}

func (h *Handler) handleApplyShipping(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req applyShippingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	o, err := h.svc.ApplyShipping.Execute(r.Context(), apporder.ApplyShippingInput{OrderID: ps.ByName("id"), Cost: req.Cost})
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := h.svc.Inventory.CheckAvailability(r.Context(), ps.ByName("productId"), queryInt(r, "quantity", 1))
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
