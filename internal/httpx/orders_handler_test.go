package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	kafkax "github.com/dwcshop/order-engine/internal/kafka"
	"github.com/dwcshop/order-engine/internal/orders"
)

type fakeOrderStore struct {
	placed    *orders.PlaceOrderInput
	placeErr  error
	placeOut  []orders.Order
	getOut    orders.Order
	getErr    error
	updateOut orders.Order
	updateErr error
}

func (f *fakeOrderStore) PlaceOrder(_ context.Context, in orders.PlaceOrderInput) ([]orders.Order, error) {
	f.placed = &in
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return f.placeOut, nil
}

func (f *fakeOrderStore) GetOrder(context.Context, int64) (orders.Order, error) {
	return f.getOut, f.getErr
}

func (f *fakeOrderStore) ListOrders(context.Context, orders.ListFilter) ([]orders.Order, int, error) {
	return nil, 0, nil
}

func (f *fakeOrderStore) UpdateOrder(context.Context, int64, orders.OrderUpdate) (orders.Order, error) {
	return f.updateOut, f.updateErr
}

func (f *fakeOrderStore) ListProducts(context.Context) ([]orders.Product, error) {
	return nil, nil
}

type fakeCart struct {
	snapshot []orders.ItemRequest
	cleared  bool
}

func (f *fakeCart) Snapshot(context.Context, int64) ([]orders.ItemRequest, error) {
	return f.snapshot, nil
}

func (f *fakeCart) Clear(context.Context, int64) error {
	f.cleared = true
	return nil
}

func newTestHandler(store *fakeOrderStore, cart *fakeCart) *OrdersHandler {
	return &OrdersHandler{
		Store:    store,
		Cart:     cart,
		Producer: kafkax.NewProducer([]string{"127.0.0.1:9092"}, "test", 64, nil),
		Log:      zap.NewNop(),
		Service:  "test",
	}
}

func doCreateOrder(h *OrdersHandler, body any, userID string) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(b))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	h.createOrder(rec, req)
	return rec
}

func TestCreateOrderSplitsIntoTwo(t *testing.T) {
	store := &fakeOrderStore{placeOut: []orders.Order{
		{ID: 1, OrderNumber: "DWC-20250114-AAAA1111", TotalCents: 90000},
		{ID: 2, OrderNumber: "DWC-20250114-BBBB2222", TotalCents: 48000,
			Items: []orders.OrderItem{{ProductID: 2, IsPreorder: true, Wave: 1, Quantity: 1, PriceCents: 48000}}},
	}}
	h := newTestHandler(store, &fakeCart{})

	rec := doCreateOrder(h, createOrderReq{
		Items:     []orders.ItemRequest{{ProductID: 1, Size: orders.SizeOKI, Quantity: 2}},
		PromoCode: "WELCOME10",
	}, "42")

	require.Equal(t, http.StatusCreated, rec.Code)
	var out []orders.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 2)

	require.NotNil(t, store.placed)
	assert.Equal(t, int64(42), store.placed.UserID)
	assert.Equal(t, "WELCOME10", store.placed.PromoCode)
}

func TestCreateOrderRequiresUser(t *testing.T) {
	h := newTestHandler(&fakeOrderStore{}, &fakeCart{})
	rec := doCreateOrder(h, createOrderReq{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: product \"tee\" size OKI", orders.ErrInsufficientStock), http.StatusBadRequest},
		{fmt.Errorf("%w: product \"hoodie\"", orders.ErrWaveExhausted), http.StatusBadRequest},
		{fmt.Errorf("%w: empty item list", orders.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: product 9", orders.ErrProductNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: stock changed underneath product 1", orders.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: commit: broken", orders.ErrPersistence), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := newTestHandler(&fakeOrderStore{placeErr: tt.err}, &fakeCart{})
		rec := doCreateOrder(h, createOrderReq{
			Items: []orders.ItemRequest{{ProductID: 1, Size: orders.SizeOKI, Quantity: 1}},
		}, "42")
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
	}
}

func TestCreateOrderFromCart(t *testing.T) {
	store := &fakeOrderStore{placeOut: []orders.Order{{ID: 1, OrderNumber: "DWC-20250114-CCCC3333"}}}
	cart := &fakeCart{snapshot: []orders.ItemRequest{{ProductID: 5, Size: orders.SizeBIG, Quantity: 1}}}
	h := newTestHandler(store, cart)

	rec := doCreateOrder(h, createOrderReq{FromCart: true}, "42")
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NotNil(t, store.placed)
	assert.Equal(t, cart.snapshot, store.placed.Items)
	assert.True(t, cart.cleared)
}

func TestCreateOrderFromEmptyCart(t *testing.T) {
	store := &fakeOrderStore{}
	h := newTestHandler(store, &fakeCart{})

	rec := doCreateOrder(h, createOrderReq{FromCart: true}, "42")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, store.placed)
}

func TestGetOrderNotFound(t *testing.T) {
	h := newTestHandler(&fakeOrderStore{getErr: fmt.Errorf("%w: order 9", orders.ErrNotFound)}, &fakeCart{})

	router := NewRouter(zap.NewNop())
	h.Register(router)

	req := httptest.NewRequest(http.MethodGet, "/orders/9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateOrderBadTransition(t *testing.T) {
	h := newTestHandler(&fakeOrderStore{
		updateErr: fmt.Errorf("%w: cannot move order X from CREATED to DELIVERED", orders.ErrInvalidRequest),
	}, &fakeCart{})

	router := NewRouter(zap.NewNop())
	h.Register(router)

	body := bytes.NewReader([]byte(`{"status":"DELIVERED"}`))
	req := httptest.NewRequest(http.MethodPatch, "/orders/1", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
