package rest

import (
	"net/http"

	"github.com/abgdnv/supermarket/pkg/web"
	"github.com/google/uuid"
)

type AddItemRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int32     `json:"quantity" validate:"gt=0"`
}

type SetQuantityRequest struct {
	Quantity int32 `json:"quantity" validate:"gt=0"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := h.caller(w, r, mLogger)
	if !ok {
		return
	}
	ownerID, ok := web.ParseUUIDParam(w, r, mLogger, "userID")
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(r.Context(), caller, ownerID)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := h.caller(w, r, mLogger)
	if !ok {
		return
	}
	ownerID, ok := web.ParseUUIDParam(w, r, mLogger, "userID")
	if !ok {
		return
	}
	var req AddItemRequest
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &req) {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to add item to cart", "owner_id", ownerID, "item_id", req.ItemID, "quantity", req.Quantity)
	cart, err := h.carts.AddItem(r.Context(), caller, ownerID, req.ItemID, req.Quantity)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart)
}

func (h *Handler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := h.caller(w, r, mLogger)
	if !ok {
		return
	}
	ownerID, ok := web.ParseUUIDParam(w, r, mLogger, "userID")
	if !ok {
		return
	}
	itemID, ok := web.ParseUUIDParam(w, r, mLogger, "itemID")
	if !ok {
		return
	}
	var req SetQuantityRequest
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &req) {
		return
	}

	cart, err := h.carts.SetItemQuantity(r.Context(), caller, ownerID, itemID, req.Quantity)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := h.caller(w, r, mLogger)
	if !ok {
		return
	}
	ownerID, ok := web.ParseUUIDParam(w, r, mLogger, "userID")
	if !ok {
		return
	}
	itemID, ok := web.ParseUUIDParam(w, r, mLogger, "itemID")
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), caller, ownerID, itemID)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := h.caller(w, r, mLogger)
	if !ok {
		return
	}
	ownerID, ok := web.ParseUUIDParam(w, r, mLogger, "userID")
	if !ok {
		return
	}

	cart, err := h.carts.Clear(r.Context(), caller, ownerID)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart)
}
