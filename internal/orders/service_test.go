package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ariefcatur/go-storefront-sync/internal/apiclient"
	"github.com/ariefcatur/go-storefront-sync/internal/events"
	"github.com/ariefcatur/go-storefront-sync/internal/httpx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T, opts ...Option) (*httpx.Backend, *Service) {
	t.Helper()
	backend := httpx.NewBackend()
	backend.AddOrder(httpx.Order{
		ID: 10, UserID: 7, AddressID: 3, TotalPrice: 610,
		OrderItems: []httpx.OrderItem{{ID: 1, MenuItemID: 17, Quantity: 1, PriceAtOrder: 320}, {ID: 2, MenuItemID: 18, Quantity: 1, PriceAtOrder: 290}},
	})
	backend.AddOrder(httpx.Order{ID: 11, UserID: 7, TotalPrice: 210})
	srv := httptest.NewServer(httpx.NewServerHandler(backend, nil))
	t.Cleanup(srv.Close)

	log := zaptest.NewLogger(t)
	api := apiclient.New(srv.URL+httpx.APIPrefix, apiclient.WithLogger(log), apiclient.WithRetries(1))
	return backend, NewService(api, append([]Option{WithLogger(log)}, opts...)...)
}

func TestFetchOrders(t *testing.T) {
	_, svc := setup(t)

	list, err := svc.FetchOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	o := list[0]
	assert.Equal(t, 10, o.ID)
	assert.Equal(t, OrderStatus{ID: 1, Name: "New"}, o.Status)
	assert.True(t, decimal.NewFromInt(610).Equal(o.TotalPrice))
	require.Len(t, o.Items, 2)
	assert.Equal(t, 17, o.Items[0].MenuItemID)
	require.NotNil(t, o.Customer)
	assert.Equal(t, "B B", o.Customer.FullName)
	assert.Equal(t, 11, list[1].ID)
}

func TestFetchOrdersStringStatus(t *testing.T) {
	backend, svc := setup(t)
	backend.SetStatusAsString(true)

	list, err := svc.FetchOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OrderStatus{Name: "New"}, list[0].Status)
}

func TestFetchOrdersNotFound(t *testing.T) {
	backend, svc := setup(t)
	backend.Fail(http.MethodGet, "/orders", http.StatusNotFound, ``)

	_, err := svc.FetchOrders(context.Background())
	assert.ErrorIs(t, err, ErrOrdersLoad)
	assert.True(t, apiclient.IsNotFound(err))
}

func TestFetchOrderStatusesMemoized(t *testing.T) {
	backend, svc := setup(t)
	ctx := context.Background()

	first, err := svc.FetchOrderStatuses(ctx)
	require.NoError(t, err)
	second, err := svc.FetchOrderStatuses(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.False(t, first.Degraded)
	assert.Len(t, first.Statuses, 4)
	assert.Equal(t, 1, backend.Calls(http.MethodGet, "/order-statuses"))
}

func TestFetchOrderStatusesConcurrentFirstCalls(t *testing.T) {
	backend, svc := setup(t)

	var wg sync.WaitGroup
	got := make([]*StatusCatalog, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = svc.FetchOrderStatuses(context.Background())
		}(i)
	}
	wg.Wait()

	for _, c := range got[1:] {
		assert.Same(t, got[0], c)
	}
	assert.Equal(t, 1, backend.Calls(http.MethodGet, "/order-statuses"))
}

func TestFetchOrderStatusesInvalidate(t *testing.T) {
	backend, svc := setup(t)
	ctx := context.Background()

	first, _ := svc.FetchOrderStatuses(ctx)
	svc.InvalidateStatuses()
	second, err := svc.FetchOrderStatuses(ctx)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, backend.Calls(http.MethodGet, "/order-statuses"))
}

func TestFetchOrderStatusesDegradedIsNotKept(t *testing.T) {
	backend, svc := setup(t)
	ctx := context.Background()
	backend.Fail(http.MethodGet, "/order-statuses", http.StatusInternalServerError, `{"message":"boom"}`)

	cat, err := svc.FetchOrderStatuses(ctx)
	require.NoError(t, err)
	assert.True(t, cat.Degraded)
	assert.Equal(t, DefaultCatalog(), cat.Statuses)

	backend.ClearFaults()
	cat, err = svc.FetchOrderStatuses(ctx)
	require.NoError(t, err)
	assert.False(t, cat.Degraded)
	assert.Equal(t, 2, backend.Calls(http.MethodGet, "/order-statuses"))
}

func TestFetchOrderStatusesWithoutFallback(t *testing.T) {
	backend, svc := setup(t, WithStatusFallback(false))
	backend.Fail(http.MethodGet, "/order-statuses", http.StatusInternalServerError, `{"message":"boom"}`)

	_, err := svc.FetchOrderStatuses(context.Background())
	assert.ErrorIs(t, err, ErrStatusLoad)
	assert.Equal(t, "boom", err.Error())
}

func TestUpdateOrderStatusByID(t *testing.T) {
	backend, svc := setup(t)
	bus := events.NewBroadcaster()
	svc.pub = bus
	sub, cancel := bus.Subscribe(1)
	defer cancel()

	o, err := svc.UpdateOrderStatus(context.Background(), 10, OrderStatus{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, OrderStatus{ID: 3, Name: "Delivered"}, o.Status)
	assert.Equal(t, 3, backend.OrderStatusID(10))
	assert.Equal(t, 1, backend.Calls(http.MethodPatch, "/orders/10"))

	e := <-sub
	assert.Equal(t, events.EventOrderStatusChanged, e.EventType)
	assert.Equal(t, "10", e.CorrelationID)
	var p events.OrderStatusChangedPayload
	require.NoError(t, json.Unmarshal(e.Payload, &p))
	assert.Equal(t, events.OrderStatusChangedPayload{OrderID: 10, StatusID: 3, StatusName: "Delivered"}, p)
}

func TestUpdateOrderStatusByName(t *testing.T) {
	backend, svc := setup(t, WithContract(ContractByName))

	o, err := svc.UpdateOrderStatus(context.Background(), 11, OrderStatus{Name: "Cancelled"})
	require.NoError(t, err)
	assert.Equal(t, "Cancelled", o.Status.Name)
	assert.Equal(t, 4, backend.OrderStatusID(11))
	assert.Equal(t, 1, backend.Calls(http.MethodPatch, "/orders/11/status"))
}

func TestUpdateOrderStatusResolvesNameFromLoadedCatalog(t *testing.T) {
	backend, svc := setup(t)
	ctx := context.Background()
	_, err := svc.FetchOrderStatuses(ctx)
	require.NoError(t, err)

	_, err = svc.UpdateOrderStatus(ctx, 10, OrderStatus{Name: "inprogress"})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.OrderStatusID(10))
}

func TestUpdateOrderStatusMissingIdentifier(t *testing.T) {
	backend, svc := setup(t)

	// catalog not loaded, so a bare name cannot become an id
	_, err := svc.UpdateOrderStatus(context.Background(), 10, OrderStatus{Name: "Delivered"})
	assert.ErrorIs(t, err, ErrStatusUpdate)
	assert.Equal(t, apiclient.KindPrecondition, apiclient.KindOf(err))
	assert.Equal(t, 0, backend.Calls(http.MethodPatch, "/orders/10"))

	_, err = svc.UpdateOrderStatus(context.Background(), 0, OrderStatus{ID: 3})
	assert.Equal(t, apiclient.KindPrecondition, apiclient.KindOf(err))
}

func TestUpdateOrderStatusNotFoundDiffersFromServerError(t *testing.T) {
	backend, svc := setup(t)
	ctx := context.Background()

	_, missing := svc.UpdateOrderStatus(ctx, 999, OrderStatus{ID: 3})
	require.Error(t, missing)
	assert.ErrorIs(t, missing, ErrStatusUpdate)
	assert.Equal(t, "order 999 not found", missing.Error())

	backend.Fail(http.MethodPatch, "/orders/10", http.StatusInternalServerError, ``)
	_, broken := svc.UpdateOrderStatus(ctx, 10, OrderStatus{ID: 3})
	require.Error(t, broken)
	assert.ErrorIs(t, broken, ErrStatusUpdate)
	assert.NotEqual(t, missing.Error(), broken.Error())
	assert.Equal(t, "could not update order status: server error (status 500)", broken.Error())

	var apiErr *apiclient.Error
	require.True(t, errors.As(broken, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestUpdateOrderStatusUnknownStatusIsValidation(t *testing.T) {
	_, svc := setup(t)
	_, err := svc.UpdateOrderStatus(context.Background(), 10, OrderStatus{ID: 42})
	assert.ErrorIs(t, err, ErrStatusUpdate)
	assert.Equal(t, apiclient.KindValidation, apiclient.KindOf(err))
	assert.Equal(t, "Status: Unknown order status.", err.Error())
}

func TestDecodeStatusShapes(t *testing.T) {
	tests := []struct {
		raw  string
		want OrderStatus
	}{
		{`{"id":2,"name":"InProgress"}`, OrderStatus{ID: 2, Name: "InProgress"}},
		{`"Delivered"`, OrderStatus{Name: "Delivered"}},
		{`3`, OrderStatus{ID: 3}},
		{`null`, OrderStatus{}},
		{``, OrderStatus{}},
	}
	for _, tt := range tests {
		got, err := decodeStatus(json.RawMessage(tt.raw))
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := decodeStatus(json.RawMessage(`[1]`))
	assert.Error(t, err)
}

func TestOrderDecodeNestedMenuItem(t *testing.T) {
	var o Order
	raw := `{"id":5,"statusId":2,"status":null,"totalPrice":"99.90","orderItems":[{"id":1,"quantity":2,"priceAtOrder":49.95,"menuItem":{"name":"Borscht"}}],"address":{"id":1,"addressText":"Main st 1"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &o))
	assert.Equal(t, 2, o.Status.ID)
	assert.Equal(t, "Borscht", o.Items[0].MenuItemName)
	require.NotNil(t, o.Address)
	assert.Equal(t, "Main st 1", o.Address.Text)
	assert.True(t, decimal.RequireFromString("99.9").Equal(o.TotalPrice))
}

func TestParseContractAndTerminal(t *testing.T) {
	c, err := ParseContract("NAME")
	require.NoError(t, err)
	assert.Equal(t, ContractByName, c)
	c, err = ParseContract("")
	require.NoError(t, err)
	assert.Equal(t, "id", c.Name())
	_, err = ParseContract("slug")
	assert.Error(t, err)

	assert.True(t, IsTerminal(OrderStatus{Name: "delivered"}))
	assert.True(t, IsTerminal(OrderStatus{Name: StatusCancelled}))
	assert.False(t, IsTerminal(OrderStatus{ID: 1, Name: StatusNew}))
}
