package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/dwcshop/order-engine/internal/kafka"
	"github.com/dwcshop/order-engine/internal/orders"
	"github.com/dwcshop/order-engine/internal/redisx"
)

// OrderStore is the slice of the orders repo the HTTP layer needs.
type OrderStore interface {
	PlaceOrder(ctx context.Context, in orders.PlaceOrderInput) ([]orders.Order, error)
	GetOrder(ctx context.Context, id int64) (orders.Order, error)
	ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, int, error)
	UpdateOrder(ctx context.Context, id int64, upd orders.OrderUpdate) (orders.Order, error)
	ListProducts(ctx context.Context) ([]orders.Product, error)
}

// CartStore supplies a snapshot of the user's cart and clears it after a
// successful from-cart order.
type CartStore interface {
	Snapshot(ctx context.Context, userID int64) ([]orders.ItemRequest, error)
	Clear(ctx context.Context, userID int64) error
}

type OrdersHandler struct {
	Store    OrderStore
	Cart     CartStore
	Producer *kafkax.Producer // order.created
	Redis    *redis.Client
	Log      *zap.Logger
	Service  string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Patch("/orders/{id}", h.updateOrder)
	r.Get("/products", h.listProducts)
}

type createOrderReq struct {
	Items           []orders.ItemRequest `json:"items"`
	FromCart        bool                 `json:"from_cart"`
	PromoCode       string               `json:"promo_code"`
	DeliveryAddress string               `json:"delivery_address"`
	PickupPoint     string               `json:"pickup_point"`
	PostalCode      string               `json:"postal_code"`
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or bad X-User-ID"})
		return
	}

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items := req.Items
	if req.FromCart {
		snapshot, err := h.Cart.Snapshot(ctx, userID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cart unavailable"})
			return
		}
		if len(snapshot) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart is empty"})
			return
		}
		items = snapshot
	}

	created, err := h.Store.PlaceOrder(ctx, orders.PlaceOrderInput{
		UserID:    userID,
		Items:     items,
		PromoCode: req.PromoCode,
		Delivery: orders.DeliveryInfo{
			Address:     req.DeliveryAddress,
			PickupPoint: req.PickupPoint,
			PostalCode:  req.PostalCode,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Order placement succeeded and is durable; the cart clear and the
	// event publish are best-effort follow-ups.
	if req.FromCart {
		if err := h.Cart.Clear(ctx, userID); err != nil {
			h.Log.Warn("clear cart", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	for _, o := range created {
		h.cacheStatus(ctx, o)
		h.publishCreated(o, middlewareRequestID(r))
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *OrdersHandler) publishCreated(o orders.Order, traceID string) {
	lines := make([]orders.ItemLine, 0, len(o.Items))
	preorder := false
	for _, it := range o.Items {
		preorder = preorder || it.IsPreorder
		lines = append(lines, orders.ItemLine{
			ProductID:  it.ProductID,
			Size:       it.Size,
			Quantity:   it.Quantity,
			PriceCents: it.PriceCents,
			Wave:       it.Wave,
		})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: o.OrderNumber,
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID,
			Preorder:    preorder,
			TotalCents:  o.TotalCents,
			Items:       lines,
		}),
	}
	h.Producer.Publish(orders.PartitionKey(o.OrderNumber), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o orders.Order) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	body, _ := json.Marshal(map[string]any{
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
	})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad order id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad order id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	body, _ := json.Marshal(map[string]any{
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
	})
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f := orders.ListFilter{Limit: queryInt(r, "limit", 10), Offset: queryInt(r, "offset", 0)}
	if userID, ok := userFrom(r); ok {
		f.UserID = &userID
	}
	if s := r.URL.Query().Get("status"); s != "" {
		st := orders.Status(s)
		if !orders.ValidStatus(st) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
			return
		}
		f.Status = &st
	}

	list, total, err := h.Store.ListOrders(ctx, f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": list,
		"total":  total,
		"limit":  f.Limit,
		"offset": f.Offset,
	})
}

type updateOrderReq struct {
	Status          *orders.Status `json:"status"`
	TrackingNumber  *string        `json:"tracking_number"`
	DeliveryAddress *string        `json:"delivery_address"`
	PickupPoint     *string        `json:"pickup_point"`
	PostalCode      *string        `json:"postal_code"`
	Force           bool           `json:"force"`
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad order id"})
		return
	}
	var req updateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.UpdateOrder(ctx, id, orders.OrderUpdate{
		Status:          req.Status,
		TrackingNumber:  req.TrackingNumber,
		DeliveryAddress: req.DeliveryAddress,
		PickupPoint:     req.PickupPoint,
		PostalCode:      req.PostalCode,
		Force:           req.Force,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Store.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// userFrom reads the user identity the auth layer in front of us injects.
func userFrom(r *http.Request) (int64, bool) {
	v := r.Header.Get("X-User-ID")
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func middlewareRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return ""
}
