package httpx

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Wire shapes served by the development backend. They mirror the remote
// storefront API, not the client's domain types.

type Cart struct {
	ID     int `json:"id"`
	UserID int `json:"userId"`
}

type CartItem struct {
	ID          int     `json:"id"`
	CartID      int     `json:"cartId"`
	MenuItemID  int     `json:"menuItemId"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description,omitempty"`
}

type MenuCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type MenuItem struct {
	ID          int     `json:"id"`
	CategoryID  int     `json:"categoryId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
}

type OrderStatus struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type OrderItem struct {
	ID           int     `json:"id"`
	MenuItemID   int     `json:"menuItemId"`
	Quantity     int     `json:"quantity"`
	PriceAtOrder float64 `json:"priceAtOrder"`
}

type Order struct {
	ID         int         `json:"id"`
	UserID     int         `json:"userId"`
	AddressID  int         `json:"addressId"`
	TotalPrice float64     `json:"totalPrice"`
	StatusID   int         `json:"-"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	OrderItems []OrderItem `json:"orderItems"`
}

type User struct {
	ID       int    `json:"id"`
	Login    string `json:"login"`
	Password string `json:"-"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	RoleID   int    `json:"roleId"`
}

type fault struct {
	status int
	body   string
}

// Backend is an in-memory storefront used by tests and cmd/mockapi.
type Backend struct {
	mu sync.Mutex

	carts      map[int]Cart
	cartItems  map[int]CartItem
	orders     map[int]*Order
	statuses   []OrderStatus
	users      map[string]User
	categories []MenuCategory
	menu       []MenuItem

	nextCartID int
	nextItemID int
	nextUserID int

	statusAsString bool

	faults map[string]fault
	calls  map[string]int
}

func NewBackend() *Backend {
	b := &Backend{
		carts:      make(map[int]Cart),
		cartItems:  make(map[int]CartItem),
		orders:     make(map[int]*Order),
		users:      make(map[string]User),
		nextCartID: 1,
		nextItemID: 1,
		nextUserID: 100,
		faults:     make(map[string]fault),
		calls:      make(map[string]int),
	}
	b.statuses = []OrderStatus{
		{ID: 1, Name: "New"},
		{ID: 2, Name: "InProgress"},
		{ID: 3, Name: "Delivered"},
		{ID: 4, Name: "Cancelled"},
	}
	b.categories = []MenuCategory{{ID: 1, Name: "Soups", Slug: "soups"}, {ID: 2, Name: "Desserts", Slug: "desserts"}}
	b.menu = []MenuItem{
		{ID: 17, CategoryID: 1, Name: "Solyanka", Description: "Meat soup", Price: 320},
		{ID: 18, CategoryID: 1, Name: "Borscht", Description: "Beet soup", Price: 290.5},
		{ID: 21, CategoryID: 2, Name: "Syrniki", Description: "Cottage cheese pancakes", Price: 210},
	}
	b.users["courier"] = User{ID: 6, Login: "courier", Password: "secret", FullName: "A A", RoleID: 2}
	b.users["client"] = User{ID: 7, Login: "client", Password: "secret", FullName: "B B", RoleID: 4}
	return b
}

// Fail makes every request matching method and path (without /api prefix or
// query) answer with status and body until ClearFaults.
func (b *Backend) Fail(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[method+" "+path] = fault{status: status, body: body}
}

// SetStatusAsString switches order responses to the bare-string status
// representation.
func (b *Backend) SetStatusAsString(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusAsString = on
}

func (b *Backend) ClearFaults() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = make(map[string]fault)
}

func (b *Backend) fault(method, path string) (fault, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.faults[method+" "+path]
	return f, ok
}

func (b *Backend) record(method, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[method+" "+path]++
}

// Calls reports how many requests reached method and path.
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

// AddCart inserts a cart without the get-or-create check, to model a backend
// that already holds duplicates.
func (b *Backend) AddCart(userID int) Cart {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := Cart{ID: b.nextCartID, UserID: userID}
	b.nextCartID++
	b.carts[c.ID] = c
	return c
}

func (b *Backend) AddOrder(o Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o.StatusID == 0 {
		o.StatusID = b.statuses[0].ID
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	b.orders[o.ID] = &o
}

func (b *Backend) OrderStatusID(orderID int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.orders[orderID]; ok {
		return o.StatusID
	}
	return 0
}

func (b *Backend) CartItemCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cartItems)
}

func (b *Backend) CartCount(userID int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.carts {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

// ---- unlocked helpers, callers hold b.mu ----

func (b *Backend) cartsByUser(userID int) []Cart {
	out := []Cart{}
	for _, c := range b.carts {
		if userID == 0 || c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) itemsByCart(cartID int) []CartItem {
	out := []CartItem{}
	for _, it := range b.cartItems {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) menuItem(id int) (MenuItem, bool) {
	for _, m := range b.menu {
		if m.ID == id {
			return m, true
		}
	}
	return MenuItem{}, false
}

func (b *Backend) statusByID(id int) (OrderStatus, bool) {
	for _, s := range b.statuses {
		if s.ID == id {
			return s, true
		}
	}
	return OrderStatus{}, false
}

func (b *Backend) statusByName(name string) (OrderStatus, bool) {
	for _, s := range b.statuses {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return OrderStatus{}, false
}

// orderView renders an order with its status in the configured shape.
func (b *Backend) orderView(o *Order) map[string]any {
	st, _ := b.statusByID(o.StatusID)
	var status any = st
	if b.statusAsString {
		status = st.Name
	}
	view := map[string]any{
		"id":         o.ID,
		"userId":     o.UserID,
		"addressId":  o.AddressID,
		"totalPrice": o.TotalPrice,
		"status":     status,
		"createdAt":  o.CreatedAt,
		"updatedAt":  o.UpdatedAt,
		"orderItems": o.OrderItems,
	}
	for _, u := range b.users {
		if u.ID == o.UserID {
			view["user"] = map[string]any{"id": u.ID, "fullName": u.FullName}
			break
		}
	}
	return view
}
