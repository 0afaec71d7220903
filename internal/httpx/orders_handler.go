package httpx

import (
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-order-events/internal/orders"
	"github.com/ariefcatur/go-order-events/internal/tracking"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type OrderQuerier interface {
	FetchOrderDetails(orderID string) (tracking.Order, bool)
	GetAllOrderIdentifiers(topicName string) []tracking.Order
}

type TopicOrdersResp struct {
	Message string           `json:"message"`
	Orders  []tracking.Order `json:"orders"`
}

// OrdersHandler serves lookups over the consumer-side store.
type OrdersHandler struct {
	store  OrderQuerier
	topics orders.Topics
	log    *zap.Logger
}

func NewOrdersHandler(store OrderQuerier, topics orders.Topics, log *zap.Logger) *OrdersHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrdersHandler{store: store, topics: topics, log: log.With(zap.String("component", "orders_http"))}
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(DefaultRequestTimeout))
		r.Get("/order/getAllOrderIdsFromTopic", h.getAllFromTopic)
		r.Get("/order/order-details", h.orderDetails)
	})
}

func (h *OrdersHandler) getAllFromTopic(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topicName")
	h.log.Info("received request to get all orders from topic", zap.String("topic", topic))

	if h.topics.ViewOf(topic) == orders.ViewUnknown {
		h.log.Warn("invalid topic name", zap.String("topic", topic))
		writeError(w, http.StatusBadRequest, "Invalid topic name.")
		return
	}

	list := h.store.GetAllOrderIdentifiers(topic)
	if len(list) == 0 {
		writeError(w, http.StatusNotFound, "No orders found in the specified topic.")
		return
	}

	h.log.Info("retrieved orders from topic", zap.String("topic", topic), zap.Int("count", len(list)))
	writeJSON(w, http.StatusOK, TopicOrdersResp{
		Message: fmt.Sprintf("Total orders in topic '%s': %d", topic, len(list)),
		Orders:  list,
	})
}

func (h *OrdersHandler) orderDetails(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	o, ok := h.store.FetchOrderDetails(orderID)
	if !ok {
		h.log.Warn("order not found", zap.String("order_id", orderID))
		writeError(w, http.StatusNotFound, fmt.Sprintf("Order with ID %s not found.", orderID))
		return
	}
	writeJSON(w, http.StatusOK, o)
}
