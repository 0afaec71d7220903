package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-order-events/internal/cart"
	"github.com/ariefcatur/go-order-events/internal/orders"
	"github.com/ariefcatur/go-order-events/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, orderID string, itemsNum int) (orders.Order, error)
	UpdateOrder(ctx context.Context, orderID, status string) (orders.Order, error)
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
}

type StatusCache interface {
	Get(ctx context.Context, orderID string) (redisx.OrderStatus, bool, error)
	Set(ctx context.Context, orderID, status string) error
}

type CreateOrderReq struct {
	OrderID  string `json:"orderId" validate:"required"`
	ItemsNum int    `json:"itemsNum" validate:"gt=0"`
}

type UpdateOrderReq struct {
	OrderID string `json:"orderId" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

type OrderStatusResp struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Cached  bool   `json:"cached"`
}

// CartHandler serves the producer-side order API.
type CartHandler struct {
	svc   OrderService
	cache StatusCache // optional
	log   *zap.Logger

	publishBudget time.Duration
}

// NewCartHandler builds the handler. publishBudget is the longest a publish may
// take with all its retries; create and update requests are allowed to run
// that long.
func NewCartHandler(svc OrderService, cache StatusCache, publishBudget time.Duration, log *zap.Logger) *CartHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartHandler{
		svc:           svc,
		cache:         cache,
		log:           log.With(zap.String("component", "cart_http")),
		publishBudget: publishBudget,
	}
}

// MutationTimeout is the request timeout of create-order and update-order.
func (h *CartHandler) MutationTimeout() time.Duration {
	if h.publishBudget <= 0 {
		return DefaultRequestTimeout
	}
	return h.publishBudget + 5*time.Second
}

func (h *CartHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(h.MutationTimeout()))
		r.Post("/order/create-order", h.createOrder)
		r.Put("/order/update-order", h.updateOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(DefaultRequestTimeout))
		r.Get("/order/{orderId}", h.getOrder)
		r.Get("/order/{orderId}/status", h.getOrderStatus)
	})
}

func (h *CartHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	h.log.Info("received create order request", zap.String("order_id", req.OrderID), zap.Int("items_num", req.ItemsNum))
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input fields. OrderId must not be empty and ItemsNum must be greater than 0.")
		return
	}

	o, err := h.svc.CreateOrder(r.Context(), req.OrderID, req.ItemsNum)
	switch {
	case errors.Is(err, cart.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "Order already exists")
		return
	case errors.Is(err, cart.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.Error("create order failed", zap.String("order_id", req.OrderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	h.cacheStatus(r.Context(), o.OrderID, o.Status)
	writeMessage(w, http.StatusOK, "Order created successfully")
}

func (h *CartHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	h.log.Info("received update order request", zap.String("order_id", req.OrderID), zap.String("status", req.Status))
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input fields. OrderId and Status must not be empty.")
		return
	}

	o, err := h.svc.UpdateOrder(r.Context(), req.OrderID, req.Status)
	switch {
	case errors.Is(err, cart.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Order with ID %s not found", req.OrderID))
		return
	case errors.Is(err, cart.ErrStatusUnchanged):
		writeError(w, http.StatusInternalServerError, "Order status is the same as entered.")
		return
	case errors.Is(err, cart.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, cart.ErrPublishFailed):
		// the store already holds the new status
		h.cacheStatus(r.Context(), o.OrderID, o.Status)
		writeError(w, http.StatusInternalServerError, "Failed to update order")
		return
	case err != nil:
		h.log.Error("update order failed", zap.String("order_id", req.OrderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}

	h.cacheStatus(r.Context(), o.OrderID, o.Status)
	writeMessage(w, http.StatusOK, "Order updated successfully")
}

func (h *CartHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	o, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Order with ID %s not found", orderID))
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *CartHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	// 1) coba cache
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		s, ok, err := h.cache.Get(ctx, orderID)
		cancel()
		if err != nil {
			h.log.Warn("status cache read failed", zap.String("order_id", orderID), zap.Error(err))
		} else if ok {
			writeJSON(w, http.StatusOK, OrderStatusResp{OrderID: orderID, Status: s.Status, Cached: true})
			return
		}
	}

	// 2) fallback store
	o, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Order with ID %s not found", orderID))
		return
	}
	h.cacheStatus(r.Context(), o.OrderID, o.Status)
	writeJSON(w, http.StatusOK, OrderStatusResp{OrderID: o.OrderID, Status: o.Status})
}

func (h *CartHandler) cacheStatus(ctx context.Context, orderID, status string) {
	if h.cache == nil || orderID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 500*time.Millisecond)
	defer cancel()
	if err := h.cache.Set(ctx, orderID, status); err != nil {
		h.log.Warn("status cache write failed", zap.String("order_id", orderID), zap.Error(err))
	}
}
