package httpx

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type StorefrontHandler struct {
	Backend *Backend
}

func (h *StorefrontHandler) Register(r chi.Router) {
	r.Use(faultInjection(h.Backend))

	r.Get("/Carts", h.listCarts)
	r.Post("/Carts", h.createCart)
	r.Get("/CartItems", h.listCartItems)
	r.Post("/CartItems", h.addCartItem)
	r.Delete("/CartItems", h.clearCartItems)
	r.Put("/CartItems/{id}", h.updateCartItem)
	r.Delete("/CartItems/{id}", h.deleteCartItem)

	r.Get("/orders", h.listOrders)
	r.Patch("/orders/{id}", h.patchOrderStatusID)
	r.Patch("/orders/{id}/status", h.patchOrderStatusName)
	r.Get("/order-statuses", h.listStatuses)

	r.Post("/users", h.register)
	r.Post("/users/login", h.login)
	r.Get("/MenuCategories", h.listCategories)
	r.Get("/MenuItems", h.listMenuItems)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

func writeFieldError(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"title":  "One or more validation errors occurred.",
		"errors": map[string][]string{field: {msg}},
	})
}

func queryInt(r *http.Request, key string) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	return i, err == nil
}

func pathInt(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "id"))
	return i, err == nil && i > 0
}

// ---- carts ----

func (h *StorefrontHandler) listCarts(w http.ResponseWriter, r *http.Request) {
	userID, _ := queryInt(r, "userId")
	b := h.Backend
	b.mu.Lock()
	out := b.cartsByUser(userID)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (h *StorefrontHandler) createCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID <= 0 {
		writeFieldError(w, "UserId", "The UserId field is required.")
		return
	}
	writeJSON(w, http.StatusCreated, h.Backend.AddCart(req.UserID))
}

// ---- cart items ----

func (h *StorefrontHandler) listCartItems(w http.ResponseWriter, r *http.Request) {
	cartID, ok := queryInt(r, "cartId")
	if !ok {
		writeFieldError(w, "cartId", "The cartId query parameter is required.")
		return
	}
	b := h.Backend
	b.mu.Lock()
	out := b.itemsByCart(cartID)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (h *StorefrontHandler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CartID     int       `json:"cartId"`
		MenuItemID int       `json:"menuItemId"`
		Quantity   int       `json:"quantity"`
		CreatedAt  time.Time `json:"createdAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity < 1 {
		writeFieldError(w, "Quantity", "Quantity must be at least 1.")
		return
	}

	b := h.Backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.carts[req.CartID]; !ok {
		writeMessage(w, http.StatusNotFound, "cart not found")
		return
	}
	m, ok := b.menuItem(req.MenuItemID)
	if !ok {
		writeFieldError(w, "MenuItemId", "Unknown menu item.")
		return
	}
	it := CartItem{
		ID:          b.nextItemID,
		CartID:      req.CartID,
		MenuItemID:  m.ID,
		Name:        m.Name,
		Price:       m.Price,
		Quantity:    req.Quantity,
		Description: m.Description,
	}
	b.nextItemID++
	b.cartItems[it.ID] = it
	writeJSON(w, http.StatusCreated, it)
}

func (h *StorefrontHandler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		ID       int `json:"id"`
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ID != 0 && req.ID != id {
		writeFieldError(w, "Id", "Id does not match the route.")
		return
	}
	if req.Quantity < 1 {
		writeFieldError(w, "Quantity", "Quantity must be at least 1.")
		return
	}

	b := h.Backend
	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.cartItems[id]
	if !ok {
		writeMessage(w, http.StatusNotFound, "cart item not found")
		return
	}
	it.Quantity = req.Quantity
	b.cartItems[id] = it
	w.WriteHeader(http.StatusNoContent)
}

func (h *StorefrontHandler) deleteCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	b := h.Backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cartItems[id]; !ok {
		writeMessage(w, http.StatusNotFound, "cart item not found")
		return
	}
	delete(b.cartItems, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *StorefrontHandler) clearCartItems(w http.ResponseWriter, r *http.Request) {
	cartID, ok := queryInt(r, "cartId")
	if !ok {
		writeFieldError(w, "cartId", "The cartId query parameter is required.")
		return
	}
	b := h.Backend
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, it := range b.cartItems {
		if it.CartID == cartID {
			delete(b.cartItems, id)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- orders ----

func (h *StorefrontHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	b := h.Backend
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int, 0, len(b.orders))
	for id := range b.orders {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.orderView(b.orders[id]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *StorefrontHandler) listStatuses(w http.ResponseWriter, r *http.Request) {
	b := h.Backend
	b.mu.Lock()
	out := append([]OrderStatus(nil), b.statuses...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// PATCH /orders/{id} {"statusId": 3}
func (h *StorefrontHandler) patchOrderStatusID(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StatusID int `json:"statusId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	h.setOrderStatus(w, r, func(b *Backend) (OrderStatus, bool) { return b.statusByID(req.StatusID) })
}

// PATCH /orders/{id}/status {"status": "Delivered"}
func (h *StorefrontHandler) patchOrderStatusName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	h.setOrderStatus(w, r, func(b *Backend) (OrderStatus, bool) { return b.statusByName(req.Status) })
}

func (h *StorefrontHandler) setOrderStatus(w http.ResponseWriter, r *http.Request, lookup func(*Backend) (OrderStatus, bool)) {
	id, ok := pathInt(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	b := h.Backend
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{})
		return
	}
	st, ok := lookup(b)
	if !ok {
		writeFieldError(w, "Status", "Unknown order status.")
		return
	}
	o.StatusID = st.ID
	o.UpdatedAt = time.Now().UTC()
	writeJSON(w, http.StatusOK, b.orderView(o))
}

// ---- users & menu ----

func (h *StorefrontHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	b := h.Backend
	b.mu.Lock()
	u, ok := b.users[req.Login]
	b.mu.Unlock()
	if !ok || u.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid login or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": u})
}

func (h *StorefrontHandler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login        string `json:"login"`
		FullName     string `json:"fullName"`
		Email        string `json:"email"`
		Phone        string `json:"phone"`
		PasswordHash string `json:"passwordHash"`
		RoleID       int    `json:"roleId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Login == "" || req.PasswordHash == "" {
		writeFieldError(w, "Login", "Login and password are required.")
		return
	}
	b := h.Backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.users[req.Login]; taken {
		writeMessage(w, http.StatusConflict, "login already taken")
		return
	}
	for _, u := range b.users {
		if req.Email != "" && u.Email == req.Email {
			writeMessage(w, http.StatusConflict, "email already taken")
			return
		}
	}
	u := User{
		ID:       b.nextUserID,
		Login:    req.Login,
		Password: req.PasswordHash,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		RoleID:   req.RoleID,
	}
	b.nextUserID++
	b.users[u.Login] = u
	writeJSON(w, http.StatusCreated, u)
}

func (h *StorefrontHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	b := h.Backend
	b.mu.Lock()
	out := append([]MenuCategory(nil), b.categories...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (h *StorefrontHandler) listMenuItems(w http.ResponseWriter, r *http.Request) {
	b := h.Backend
	b.mu.Lock()
	out := append([]MenuItem(nil), b.menu...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}
