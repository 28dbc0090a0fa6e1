package rest

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/supermarket/pkg/web"
)

type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"max=64"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Checkout turns the cart into an order. The body is optional; an absent payment
// method is recorded as UNSPECIFIED.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := h.caller(w, r, mLogger)
	if !ok {
		return
	}
	ownerID, ok := web.ParseUUIDParam(w, r, mLogger, "userID")
	if !ok {
		return
	}
	var req CheckoutRequest
	if r.ContentLength != 0 && !web.DecodeAndValidate(w, r, mLogger, h.validate, &req) {
		return
	}
	key := r.Header.Get(IdempotencyKeyHeader)

	mLogger.DebugContext(r.Context(), "Received checkout request", "owner_id", ownerID, "idempotency_key", key)
	order, err := h.checkout.Checkout(r.Context(), caller, ownerID, req.PaymentMethod, key)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order created successfully", slog.String("ID", order.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusCreated, order)
}

func (h *Handler) FindOrderByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := h.caller(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseUUIDParam(w, r, mLogger, "id")
	if !ok {
		return
	}

	order, err := h.orders.FindByID(r.Context(), caller, id)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, order)
}

func (h *Handler) FindOrdersByOwner(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := h.caller(w, r, mLogger)
	if !ok {
		return
	}
	ownerID, ok := web.ParseUUIDParam(w, r, mLogger, "userID")
	if !ok {
		return
	}
	status, ok := h.statusFilter(w, r, mLogger)
	if !ok {
		return
	}

	list, err := h.orders.FindByOwner(r.Context(), caller, ownerID, status)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved order list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

func (h *Handler) FindAllOrders(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := h.caller(w, r, mLogger)
	if !ok {
		return
	}
	status, ok := h.statusFilter(w, r, mLogger)
	if !ok {
		return
	}

	list, err := h.orders.FindAll(r.Context(), caller, status)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := h.caller(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseUUIDParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	var req SetStatusRequest
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &req) {
		return
	}

	order, err := h.orders.SetStatus(r.Context(), caller, id, req.Status)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order status updated", "ID", order.ID, "status", order.Status)
	web.RespondJSON(w, mLogger, http.StatusOK, order)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := h.caller(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseUUIDParam(w, r, mLogger, "id")
	if !ok {
		return
	}

	order, err := h.orders.Cancel(r.Context(), caller, id)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, order)
}
