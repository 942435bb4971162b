package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewServerHandler(NewBackend(), nil))
	defer srv.Close()

	resp, body := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestCartItemLifecycle(t *testing.T) {
	b := NewBackend()
	srv := httptest.NewServer(NewServerHandler(b, nil))
	defer srv.Close()

	resp, body := do(t, srv, http.MethodPost, "/api/Carts", `{"userId":7}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var c Cart
	require.NoError(t, json.Unmarshal([]byte(body), &c))
	assert.Equal(t, 7, c.UserID)

	resp, body = do(t, srv, http.MethodPost, "/api/CartItems", `{"cartId":1,"menuItemId":21,"quantity":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":1,"cartId":1,"menuItemId":21,"name":"Syrniki","price":210,"quantity":2,"description":"Cottage cheese pancakes"}`, body)

	resp, _ = do(t, srv, http.MethodPut, "/api/CartItems/1", `{"id":1,"quantity":5}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, srv, http.MethodPut, "/api/CartItems/1", `{"id":2,"quantity":5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Id does not match the route.")

	_, body = do(t, srv, http.MethodGet, "/api/CartItems?cartId=1", "")
	assert.Contains(t, body, `"quantity":5`)

	resp, _ = do(t, srv, http.MethodDelete, "/api/CartItems/1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = do(t, srv, http.MethodDelete, "/api/CartItems/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"message":"cart item not found"}`, body)

	assert.Equal(t, 2, b.Calls(http.MethodDelete, "/CartItems/1"))
}

func TestAddCartItemValidation(t *testing.T) {
	b := NewBackend()
	b.AddCart(7)
	srv := httptest.NewServer(NewServerHandler(b, nil))
	defer srv.Close()

	resp, body := do(t, srv, http.MethodPost, "/api/CartItems", `{"cartId":1,"menuItemId":18,"quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Quantity must be at least 1.")

	resp, _ = do(t, srv, http.MethodPost, "/api/CartItems", `{"cartId":99,"menuItemId":18,"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/api/CartItems", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, b.CartItemCount())
}

func TestOrderStatusShapes(t *testing.T) {
	b := NewBackend()
	b.AddOrder(Order{ID: 3, UserID: 7, TotalPrice: 100})
	srv := httptest.NewServer(NewServerHandler(b, nil))
	defer srv.Close()

	_, body := do(t, srv, http.MethodGet, "/api/orders", "")
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list, 1)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "New"}, list[0]["status"])
	assert.Equal(t, map[string]any{"id": float64(7), "fullName": "B B"}, list[0]["user"])

	b.SetStatusAsString(true)
	resp, body := do(t, srv, http.MethodPatch, "/api/orders/3/status", `{"status":"delivered"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"Delivered"`)
	assert.Equal(t, 3, b.OrderStatusID(3))

	resp, _ = do(t, srv, http.MethodPatch, "/api/orders/3", `{"statusId":9}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodPatch, "/api/orders/4", `{"statusId":2}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFaultInjection(t *testing.T) {
	b := NewBackend()
	srv := httptest.NewServer(NewServerHandler(b, nil))
	defer srv.Close()

	b.Fail(http.MethodGet, "/order-statuses", http.StatusServiceUnavailable, `{"message":"maintenance"}`)
	resp, body := do(t, srv, http.MethodGet, "/api/order-statuses", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"message":"maintenance"}`, body)

	b.ClearFaults()
	resp, _ = do(t, srv, http.MethodGet, "/api/order-statuses", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, b.Calls(http.MethodGet, "/order-statuses"))
}

func TestLoginAndRegister(t *testing.T) {
	srv := httptest.NewServer(NewServerHandler(NewBackend(), nil))
	defer srv.Close()

	resp, body := do(t, srv, http.MethodPost, "/api/users/login", `{"login":"courier","password":"secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"data":{"id":6,"login":"courier","fullName":"A A","roleId":2}}`, body)

	resp, body = do(t, srv, http.MethodPost, "/api/users/login", `{"login":"courier","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"invalid login or password"}`, body)

	resp, _ = do(t, srv, http.MethodPost, "/api/users", `{"login":"x","passwordHash":"y","email":"x@example.com","roleId":4}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body = do(t, srv, http.MethodPost, "/api/users", `{"login":"z","passwordHash":"y","email":"x@example.com","roleId":4}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, "email already taken")
}
