package orders

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID       int    `json:"id"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
}

type Address struct {
	ID   int    `json:"id"`
	Text string `json:"addressText"`
}

type OrderItem struct {
	ID           int             `json:"id"`
	MenuItemID   int             `json:"menuItemId"`
	MenuItemName string          `json:"menuItemName,omitempty"`
	Quantity     int             `json:"quantity"`
	PriceAtOrder decimal.Decimal `json:"priceAtOrder"`
}

type Order struct {
	ID         int             `json:"id"`
	UserID     int             `json:"userId"`
	AddressID  int             `json:"addressId"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Status     OrderStatus     `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Items      []OrderItem     `json:"orderItems"`
	Address    *Address        `json:"address,omitempty"`
	Customer   *Customer       `json:"user,omitempty"`
}

// UnmarshalJSON normalizes the order's status, which the server sends either
// as an embedded {id, name} object or as a bare name, and flattens the nested
// menuItem of each line.
func (o *Order) UnmarshalJSON(b []byte) error {
	var w struct {
		ID         int             `json:"id"`
		UserID     int             `json:"userId"`
		AddressID  int             `json:"addressId"`
		TotalPrice decimal.Decimal `json:"totalPrice"`
		Status     json.RawMessage `json:"status"`
		StatusID   int             `json:"statusId"`
		CreatedAt  time.Time       `json:"createdAt"`
		UpdatedAt  time.Time       `json:"updatedAt"`
		Items      []struct {
			OrderItem
			MenuItem *struct {
				Name string `json:"name"`
			} `json:"menuItem"`
		} `json:"orderItems"`
		Address  *Address  `json:"address"`
		Customer *Customer `json:"user"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	status, err := decodeStatus(w.Status)
	if err != nil {
		return fmt.Errorf("order %d: %w", w.ID, err)
	}
	if status.ID == 0 {
		status.ID = w.StatusID
	}

	*o = Order{
		ID:         w.ID,
		UserID:     w.UserID,
		AddressID:  w.AddressID,
		TotalPrice: w.TotalPrice,
		Status:     status,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
		Items:      make([]OrderItem, 0, len(w.Items)),
		Address:    w.Address,
		Customer:   w.Customer,
	}
	for _, it := range w.Items {
		line := it.OrderItem
		if line.MenuItemName == "" && it.MenuItem != nil {
			line.MenuItemName = it.MenuItem.Name
		}
		o.Items = append(o.Items, line)
	}
	return nil
}

// decodeStatus is the one place that knows both status shapes.
func decodeStatus(raw json.RawMessage) (OrderStatus, error) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return OrderStatus{}, nil
	}
	switch raw[0] {
	case '{':
		var s OrderStatus
		if err := json.Unmarshal(raw, &s); err != nil {
			return OrderStatus{}, fmt.Errorf("decode status: %w", err)
		}
		return s, nil
	case '"':
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return OrderStatus{}, fmt.Errorf("decode status: %w", err)
		}
		return OrderStatus{Name: name}, nil
	default:
		var id int
		if err := json.Unmarshal(raw, &id); err != nil {
			return OrderStatus{}, fmt.Errorf("decode status: unsupported shape %s", raw)
		}
		return OrderStatus{ID: id}, nil
	}
}
