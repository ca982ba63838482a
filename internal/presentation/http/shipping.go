package httppresentation

import (
	"net/http"

	appshipping "github.com/Zhima-Mochi/minishop-checkout/internal/application/shipping"
	domshipping "github.com/Zhima-Mochi/minishop-checkout/internal/domain/shipping"
	"github.com/julienschmidt/httprouter"
)

type quoteRequest struct {
	OrderID              string `json:"order_id"`
	DestinationAddressID string `json:"destination_address_id"`
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	options, err := h.svc.Quote.Execute(r.Context(), appshipping.QuoteInput{
		OrderID:              req.OrderID,
		DestinationAddressID: req.DestinationAddressID,
		Actor:                actorFrom(r.Context()),
	})
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"options": options})
}

type bookRequest struct {
	OrderID              string             `json:"order_id"`
	DestinationAddressID string             `json:"destination_address_id"`
	Option               domshipping.Option `json:"option"`
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	s, err := h.svc.Book.Execute(r.Context(), appshipping.BookInput{
		OrderID:              req.OrderID,
		DestinationAddressID: req.DestinationAddressID,
		Option:               req.Option,
		Actor:                actorFrom(r.Context()),
	})
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShipmentView(s))
}

func (h *Handler) handleTrack(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, err := h.svc.Track.Execute(r.Context(), actorFrom(r.Context()), ps.ByName("orderId"))
	if err != nil {
		writeAppError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentView(s))
}
