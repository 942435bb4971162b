package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront-sync/internal/apiclient"
)

type OrderStatus struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StatusCatalog is the list offered to the courier admin. Degraded means the
// server catalog could not be loaded and the built-in defaults are shown.
type StatusCatalog struct {
	Statuses []OrderStatus
	Degraded bool
}

const (
	StatusNew        = "New"
	StatusInProgress = "InProgress"
	StatusDelivered  = "Delivered"
	StatusCancelled  = "Cancelled"
)

// DefaultCatalog is served when the status endpoint is unavailable.
func DefaultCatalog() []OrderStatus {
	return []OrderStatus{
		{ID: 1, Name: StatusNew},
		{ID: 2, Name: StatusInProgress},
		{ID: 3, Name: StatusDelivered},
		{ID: 4, Name: StatusCancelled},
	}
}

// ByName finds a status case-insensitively.
func (c *StatusCatalog) ByName(name string) (OrderStatus, bool) {
	if c == nil {
		return OrderStatus{}, false
	}
	for _, s := range c.Statuses {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return OrderStatus{}, false
}

func (c *StatusCatalog) ByID(id int) (OrderStatus, bool) {
	if c == nil {
		return OrderStatus{}, false
	}
	for _, s := range c.Statuses {
		if s.ID == id {
			return s, true
		}
	}
	return OrderStatus{}, false
}

// IsTerminal reports whether no further courier action is expected. It is a
// display hint only; the server decides which transitions are legal.
func IsTerminal(s OrderStatus) bool {
	return strings.EqualFold(s.Name, StatusDelivered) || strings.EqualFold(s.Name, StatusCancelled)
}

// Contract is how a status change is expressed on the wire. Exactly one is
// active per deployment.
type Contract interface {
	Name() string
	// request returns the PATCH path and body for moving orderID to s, or a
	// precondition error when s lacks the identifier this contract needs.
	request(orderID int, s OrderStatus) (string, any, error)
}

type byID struct{}

func (byID) Name() string { return "id" }

func (byID) request(orderID int, s OrderStatus) (string, any, error) {
	if s.ID <= 0 {
		return "", nil, apiclient.Precondition("status id is required, got %d", s.ID)
	}
	return apiclient.Path(nil, "orders", orderID), struct {
		StatusID int `json:"statusId"`
	}{s.ID}, nil
}

type byName struct{}

func (byName) Name() string { return "name" }

func (byName) request(orderID int, s OrderStatus) (string, any, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return "", nil, apiclient.Precondition("status name is required")
	}
	return apiclient.Path(nil, "orders", orderID, "status"), struct {
		Status string `json:"status"`
	}{name}, nil
}

var (
	// ContractByID sends PATCH /orders/{id} {"statusId": n}.
	ContractByID Contract = byID{}
	// ContractByName sends PATCH /orders/{id}/status {"status": "Delivered"}.
	ContractByName Contract = byName{}
)

func ParseContract(s string) (Contract, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "id":
		return ContractByID, nil
	case "name":
		return ContractByName, nil
	default:
		return nil, fmt.Errorf("unknown status contract %q (want id or name)", s)
	}
}

// resolve fills in the identifier s is missing from the catalog, when the
// catalog is already loaded. It never triggers a fetch.
func (svc *Service) resolve(ctx context.Context, s OrderStatus) OrderStatus {
	if (s.ID > 0 && s.Name != "") || !svc.statuses.Loaded() {
		return s
	}
	cat, err := svc.FetchOrderStatuses(ctx)
	if err != nil {
		return s
	}
	if s.ID <= 0 {
		if found, ok := cat.ByName(s.Name); ok {
			return found
		}
		return s
	}
	if found, ok := cat.ByID(s.ID); ok {
		return found
	}
	return s
}
