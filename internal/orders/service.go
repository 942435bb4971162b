// Package orders reads orders and the status catalog for the courier admin
// and changes an order's status through whichever wire contract the
// deployment uses.
package orders

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-storefront-sync/internal/apiclient"
	"github.com/ariefcatur/go-storefront-sync/internal/events"
	"github.com/ariefcatur/go-storefront-sync/internal/memo"
	"go.uber.org/zap"
)

type Remote interface {
	Get(ctx context.Context, path string, out any) error
	Patch(ctx context.Context, path string, body, out any) error
}

type Service struct {
	api      Remote
	log      *zap.Logger
	pub      events.Publisher
	producer string
	contract Contract
	fallback bool

	statuses memo.Lazy[*StatusCatalog]
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.pub = p } }

func WithProducerName(name string) Option { return func(s *Service) { s.producer = name } }

func WithContract(c Contract) Option { return func(s *Service) { s.contract = c } }

// WithStatusFallback controls whether FetchOrderStatuses serves the default
// catalog when the server catalog cannot be loaded. On by default.
func WithStatusFallback(on bool) Option { return func(s *Service) { s.fallback = on } }

func NewService(api Remote, opts ...Option) *Service {
	s := &Service{
		api:      api,
		log:      zap.NewNop(),
		pub:      events.Nop{},
		producer: "storefront",
		contract: ContractByID,
		fallback: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Contract() Contract { return s.contract }

// FetchOrders returns every order visible to the caller, in server order.
func (s *Service) FetchOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := s.api.Get(ctx, "/orders", &out); err != nil {
		s.log.Warn("fetch orders failed", zap.Error(err))
		return nil, fail(ErrOrdersLoad, "could not load orders", err)
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

// FetchOrderStatuses returns the status catalog. The first successful load is
// kept for the life of the process and shared by concurrent callers. A
// degraded catalog is never kept, so the next call asks the server again.
func (s *Service) FetchOrderStatuses(ctx context.Context) (*StatusCatalog, error) {
	cat, err := s.statuses.Get(ctx, s.loadStatuses)
	if err == nil {
		return cat, nil
	}
	if !s.fallback || ctx.Err() != nil {
		return nil, fail(ErrStatusLoad, "could not load order statuses", err)
	}
	s.log.Warn("order statuses unavailable, using defaults", zap.Error(err))
	return &StatusCatalog{Statuses: DefaultCatalog(), Degraded: true}, nil
}

func (s *Service) loadStatuses(ctx context.Context) (*StatusCatalog, error) {
	var list []OrderStatus
	if err := s.api.Get(ctx, "/order-statuses", &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []OrderStatus{}
	}
	s.log.Debug("order statuses loaded", zap.Int("count", len(list)))
	return &StatusCatalog{Statuses: list}, nil
}

// InvalidateStatuses drops the memoized catalog.
func (s *Service) InvalidateStatuses() { s.statuses.Invalidate() }

// UpdateOrderStatus asks the server to move orderID to status and returns the
// order as the server now reports it. Transition legality is the server's
// call.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int, status OrderStatus) (Order, error) {
	if orderID <= 0 {
		return Order{}, fail(ErrStatusUpdate, "could not update order status",
			apiclient.Precondition("order id must be positive, got %d", orderID))
	}
	status = s.resolve(ctx, status)
	path, body, err := s.contract.request(orderID, status)
	if err != nil {
		return Order{}, fail(ErrStatusUpdate, "could not update order status", err)
	}

	s.log.Info("updating order status",
		zap.Int("order_id", orderID),
		zap.Int("status_id", status.ID),
		zap.String("status", status.Name),
		zap.String("contract", s.contract.Name()))

	var updated Order
	if err := s.api.Patch(ctx, path, body, &updated); err != nil {
		if apiclient.IsNotFound(err) {
			return Order{}, &Error{Op: ErrStatusUpdate, Message: fmt.Sprintf("order %d not found", orderID), Err: err}
		}
		return Order{}, fail(ErrStatusUpdate, "could not update order status", err)
	}
	// some deployments answer 204; report what was requested
	if updated.ID == 0 {
		updated.ID = orderID
		updated.Status = status
	}

	s.pub.Publish(ctx, events.New(s.producer, events.EventOrderStatusChanged, orderID, events.OrderStatusChangedPayload{
		OrderID:    orderID,
		StatusID:   updated.Status.ID,
		StatusName: updated.Status.Name,
	}))
	return updated, nil
}
