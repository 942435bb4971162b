package cart

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID     int `json:"id"`
	UserID int `json:"userId"`
}

// Item is one line of a cart. UnitPrice is the menu price at the time the
// backend answered; the client never computes prices of its own.
type Item struct {
	ID          int             `json:"id"`
	CartID      int             `json:"cartId"`
	MenuItemID  int             `json:"menuItemId"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Description *string         `json:"description,omitempty"`
}

func (it Item) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// UnmarshalJSON accepts both the flat item shape ({name, price}) and the
// older one with menuItem-prefixed fields ({menuItemName, menuItemPrice}) or
// a nested menuItem object.
func (it *Item) UnmarshalJSON(b []byte) error {
	type menuRef struct {
		Name        string           `json:"name"`
		Price       *decimal.Decimal `json:"price"`
		Description *string          `json:"description"`
	}
	var w struct {
		ID                  int              `json:"id"`
		CartID              int              `json:"cartId"`
		MenuItemID          int              `json:"menuItemId"`
		Quantity            int              `json:"quantity"`
		Name                string           `json:"name"`
		MenuItemName        string           `json:"menuItemName"`
		Price               *decimal.Decimal `json:"price"`
		UnitPrice           *decimal.Decimal `json:"unitPrice"`
		MenuItemPrice       *decimal.Decimal `json:"menuItemPrice"`
		Description         *string          `json:"description"`
		MenuItemDescription *string          `json:"menuItemDescription"`
		MenuItem            *menuRef         `json:"menuItem"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*it = Item{
		ID:          w.ID,
		CartID:      w.CartID,
		MenuItemID:  w.MenuItemID,
		Quantity:    w.Quantity,
		Name:        firstString(w.Name, w.MenuItemName),
		Description: firstPtr(w.Description, w.MenuItemDescription),
	}
	if p := firstPtr(w.UnitPrice, w.Price, w.MenuItemPrice); p != nil {
		it.UnitPrice = *p
	}
	if m := w.MenuItem; m != nil {
		if it.Name == "" {
			it.Name = m.Name
		}
		if it.Description == nil {
			it.Description = m.Description
		}
		if firstPtr(w.UnitPrice, w.Price, w.MenuItemPrice) == nil && m.Price != nil {
			it.UnitPrice = *m.Price
		}
	}
	return nil
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPtr[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

type createCartRequest struct {
	UserID int `json:"userId"`
}

type addItemRequest struct {
	CartID     int       `json:"cartId"`
	MenuItemID int       `json:"menuItemId"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"createdAt"`
}

type updateQuantityRequest struct {
	ID       int `json:"id"`
	Quantity int `json:"quantity"`
}
