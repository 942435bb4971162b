// Package cart is the single seam through which screens read and mutate the
// remote cart. Nothing is cached locally: every read is a round trip.
package cart

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/ariefcatur/go-storefront-sync/internal/apiclient"
	"github.com/ariefcatur/go-storefront-sync/internal/events"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Remote is the subset of *apiclient.Client the service needs.
type Remote interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

type Service struct {
	api      Remote
	log      *zap.Logger
	pub      events.Publisher
	producer string
	now      func() time.Time

	resolving singleflight.Group
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.pub = p } }

func WithProducerName(name string) Option { return func(s *Service) { s.producer = name } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(api Remote, opts ...Option) *Service {
	s := &Service{
		api:      api,
		log:      zap.NewNop(),
		pub:      events.Nop{},
		producer: "storefront",
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetOrCreateCart returns the user's cart, creating it on first access.
// Concurrent calls for one user share a single resolution.
func (s *Service) GetOrCreateCart(ctx context.Context, userID int) (Cart, error) {
	if userID <= 0 {
		return Cart{}, fail(ErrCartResolution, "could not load or create cart",
			apiclient.Precondition("user id must be positive, got %d", userID))
	}
	// the shared resolution must outlive the first caller's cancellation
	resolveCtx := context.WithoutCancel(ctx)
	ch := s.resolving.DoChan(strconv.Itoa(userID), func() (any, error) {
		return s.resolveCart(resolveCtx, userID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Cart{}, res.Err
		}
		return res.Val.(Cart), nil
	case <-ctx.Done():
		return Cart{}, fail(ErrCartResolution, "could not load or create cart", ctx.Err())
	}
}

func (s *Service) resolveCart(ctx context.Context, userID int) (Cart, error) {
	var carts []Cart
	lookupErr := s.api.Get(ctx, apiclient.Path(url.Values{"userId": {strconv.Itoa(userID)}}, "Carts"), &carts)
	if lookupErr == nil {
		// some backends ignore the filter; never adopt another user's cart
		matches := carts[:0]
		for _, c := range carts {
			if c.UserID == userID || c.UserID == 0 {
				matches = append(matches, c)
			}
		}
		if len(matches) > 1 {
			s.log.Warn("duplicate carts for user, using first",
				zap.Int("user_id", userID),
				zap.Int("cart_id", matches[0].ID),
				zap.Int("count", len(matches)))
		}
		if len(matches) > 0 {
			c := matches[0]
			c.UserID = userID
			s.publish(ctx, events.EventCartResolved, c.ID, events.CartResolvedPayload{CartID: c.ID, UserID: userID})
			return c, nil
		}
	} else {
		s.log.Warn("cart lookup failed, trying create", zap.Int("user_id", userID), zap.Error(lookupErr))
	}

	var created Cart
	if err := s.api.Post(ctx, "/Carts", createCartRequest{UserID: userID}, &created); err != nil {
		return Cart{}, &Error{Op: ErrCartResolution, Message: resolutionMessage(err, lookupErr), Err: err}
	}
	if created.UserID == 0 {
		created.UserID = userID
	}
	s.log.Info("cart created", zap.Int("user_id", userID), zap.Int("cart_id", created.ID))
	s.publish(ctx, events.EventCartResolved, created.ID, events.CartResolvedPayload{CartID: created.ID, UserID: userID, Created: true})
	return created, nil
}

// GetCartItems returns the items in server order; callers must not rely on
// that order being stable.
func (s *Service) GetCartItems(ctx context.Context, cartID int) ([]Item, error) {
	if cartID <= 0 {
		return nil, fail(ErrCartLoad, "could not load cart", apiclient.Precondition("cart id must be positive, got %d", cartID))
	}
	var items []Item
	if err := s.api.Get(ctx, apiclient.Path(url.Values{"cartId": {strconv.Itoa(cartID)}}, "CartItems"), &items); err != nil {
		return nil, fail(ErrCartLoad, "could not load cart", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// AddToCart creates a new cart line. quantity 0 means 1. Repeated adds of the
// same menu item are not merged.
func (s *Service) AddToCart(ctx context.Context, cartID, menuItemID, quantity int) (Item, error) {
	if quantity == 0 {
		quantity = 1
	}
	var pre error
	switch {
	case cartID <= 0:
		pre = apiclient.Precondition("cart id must be positive, got %d", cartID)
	case menuItemID <= 0:
		pre = apiclient.Precondition("menu item id must be positive, got %d", menuItemID)
	case quantity < 0:
		pre = apiclient.Precondition("quantity must be positive, got %d", quantity)
	}
	if pre != nil {
		return Item{}, fail(ErrCartMutation, "could not add item to cart", pre)
	}

	s.log.Info("adding item", zap.Int("cart_id", cartID), zap.Int("menu_item_id", menuItemID), zap.Int("quantity", quantity))
	req := addItemRequest{CartID: cartID, MenuItemID: menuItemID, Quantity: quantity, CreatedAt: s.now().UTC()}
	var item Item
	if err := s.api.Post(ctx, "/CartItems", req, &item); err != nil {
		return Item{}, fail(ErrCartMutation, "could not add item to cart", err)
	}
	if item.CartID == 0 {
		item.CartID = cartID
	}
	if item.MenuItemID == 0 {
		item.MenuItemID = menuItemID
	}
	if item.Quantity == 0 {
		item.Quantity = quantity
	}
	s.publish(ctx, events.EventCartItemAdded, cartID, events.CartItemPayload{
		CartID: cartID, ItemID: item.ID, MenuItemID: menuItemID, Quantity: item.Quantity,
	})
	return item, nil
}

// UpdateCartItemQuantity sets an item's quantity. newQuantity < 1 is a no-op,
// not a removal; use RemoveFromCart for that.
func (s *Service) UpdateCartItemQuantity(ctx context.Context, itemID, newQuantity int) error {
	if newQuantity < 1 {
		s.log.Debug("ignoring quantity below 1", zap.Int("item_id", itemID), zap.Int("quantity", newQuantity))
		return nil
	}
	if itemID <= 0 {
		return fail(ErrCartMutation, "could not update quantity", apiclient.Precondition("item id must be positive, got %d", itemID))
	}

	s.log.Info("updating quantity", zap.Int("item_id", itemID), zap.Int("new_quantity", newQuantity))
	req := updateQuantityRequest{ID: itemID, Quantity: newQuantity}
	if err := s.api.Put(ctx, apiclient.Path(nil, "CartItems", itemID), req, nil); err != nil {
		return fail(ErrCartMutation, "could not update quantity", err)
	}
	s.publish(ctx, events.EventCartItemQuantityUpdated, itemID, events.CartItemPayload{ItemID: itemID, Quantity: newQuantity})
	return nil
}

// RemoveFromCart deletes one item. Removing an item that is already gone
// surfaces a NotFound-kind error; screens treat that as success.
func (s *Service) RemoveFromCart(ctx context.Context, itemID int) error {
	if itemID <= 0 {
		return fail(ErrCartMutation, "could not remove item", apiclient.Precondition("item id must be positive, got %d", itemID))
	}

	s.log.Info("removing item", zap.Int("item_id", itemID))
	if err := s.api.Delete(ctx, apiclient.Path(nil, "CartItems", itemID), nil); err != nil {
		return fail(ErrCartMutation, "could not remove item", err)
	}
	s.publish(ctx, events.EventCartItemRemoved, itemID, events.CartItemPayload{ItemID: itemID})
	return nil
}

// ClearCart removes every item of the cart in one call. The cart itself stays.
func (s *Service) ClearCart(ctx context.Context, cartID int) error {
	if cartID <= 0 {
		return fail(ErrCartMutation, "could not clear cart", apiclient.Precondition("cart id must be positive, got %d", cartID))
	}

	s.log.Info("clearing cart", zap.Int("cart_id", cartID))
	if err := s.api.Delete(ctx, apiclient.Path(url.Values{"cartId": {strconv.Itoa(cartID)}}, "CartItems"), nil); err != nil {
		return fail(ErrCartMutation, "could not clear cart", err)
	}
	s.publish(ctx, events.EventCartCleared, cartID, events.CartClearedPayload{CartID: cartID})
	return nil
}

// GetTotalCartItems re-fetches the items and sums their quantities.
func (s *Service) GetTotalCartItems(ctx context.Context, cartID int) (int, error) {
	items, err := s.GetCartItems(ctx, cartID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total, nil
}

// GetCartTotal re-fetches the items and sums unit price × quantity.
func (s *Service) GetCartTotal(ctx context.Context, cartID int) (decimal.Decimal, error) {
	items, err := s.GetCartItems(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(items), nil
}

func Total(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

func (s *Service) publish(ctx context.Context, eventType string, correlationID int, payload any) {
	s.pub.Publish(ctx, events.New(s.producer, eventType, correlationID, payload))
}
