// Package rest exposes cart, checkout and order operations over HTTP.
package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/pkg/auth"
	"github.com/abgdnv/supermarket/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader makes a checkout request safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

type CartService interface {
	GetCart(ctx context.Context, caller model.Identity, ownerID uuid.UUID) (*model.Cart, error)
	AddItem(ctx context.Context, caller model.Identity, ownerID, itemID uuid.UUID, qty int32) (*model.Cart, error)
	SetItemQuantity(ctx context.Context, caller model.Identity, ownerID, itemID uuid.UUID, qty int32) (*model.Cart, error)
	RemoveItem(ctx context.Context, caller model.Identity, ownerID, itemID uuid.UUID) (*model.Cart, error)
	Clear(ctx context.Context, caller model.Identity, ownerID uuid.UUID) (*model.Cart, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, caller model.Identity, ownerID uuid.UUID, paymentMethod, idempotencyKey string) (*model.Order, error)
}

type OrderService interface {
	FindByID(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Order, error)
	FindByOwner(ctx context.Context, caller model.Identity, ownerID uuid.UUID, status *model.Status) ([]model.Order, error)
	FindAll(ctx context.Context, caller model.Identity, status *model.Status) ([]model.Order, error)
	SetStatus(ctx context.Context, caller model.Identity, id uuid.UUID, rawStatus string) (*model.Order, error)
	Cancel(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Order, error)
}

type Handler struct {
	carts    CartService
	checkout CheckoutService
	orders   OrderService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(carts CartService, checkout CheckoutService, orders OrderService, logger *slog.Logger) *Handler {
	return &Handler{
		carts:    carts,
		checkout: checkout,
		orders:   orders,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes mounts the API under authn, which must store the caller with auth.WithIdentity.
func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Route("/api/v1/users/{userID}", func(r chi.Router) {
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Post("/items", h.AddItem)
				r.Put("/items/{itemID}", h.SetItemQuantity)
				r.Delete("/items/{itemID}", h.RemoveItem)
			})
			r.Post("/checkout", h.Checkout)
			r.Get("/orders", h.FindOrdersByOwner)
		})
		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", h.FindAllOrders)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.FindOrderByID)
				r.Put("/status", h.SetOrderStatus)
				r.Post("/cancel", h.CancelOrder)
			})
		})
	})
	r.Get("/healthz", h.HealthCheck)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}

// caller returns the identity stored by the auth middleware or writes a 401.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (model.Identity, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		web.RespondError(w, logger, http.StatusUnauthorized, "Unauthorized: missing caller identity")
		return model.Identity{}, false
	}
	return id, true
}

// statusFilter parses the optional status query parameter.
func (h *Handler) statusFilter(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*model.Status, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, true
	}
	status, err := model.ParseStatus(raw)
	if err != nil {
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &status, true
}

// respondServiceError maps an error kind to its HTTP status. Unknown errors hide their message.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, message := MapErrorToHttpStatus(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "error", err)
	}
	web.RespondError(w, logger, status, message)
}

func MapErrorToHttpStatus(err error) (statusCode int, message string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrInsufficientStock),
		errors.Is(err, apperrors.ErrInvalidState),
		errors.Is(err, apperrors.ErrDuplicateRequest):
		return http.StatusConflict, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The request timed out"
	default:
		return http.StatusInternalServerError, "An unexpected error occurred"
	}
}
