package screens

import (
	"context"

	"github.com/ariefcatur/go-storefront-sync/internal/cart"
	"github.com/ariefcatur/go-storefront-sync/internal/session"
)

// AddToCartAction is the "add" button on a menu card. It never substitutes a
// different menu item for an invalid one.
type AddToCartAction struct {
	carts *cart.Service
	sess  *session.Store
	note  Notifier
}

func NewAddToCartAction(carts *cart.Service, sess *session.Store, note Notifier) *AddToCartAction {
	return &AddToCartAction{carts: carts, sess: sess, note: note}
}

// Run resolves the cart first and only then adds the item.
func (a *AddToCartAction) Run(ctx context.Context, menuItemID, quantity int) (cart.Item, error) {
	userID, ok := a.sess.UserID()
	if !ok {
		a.note.Notify(Notice{Level: LevelError, Message: "sign in to add items"})
		return cart.Item{}, ErrNotSignedIn
	}
	c, err := a.carts.GetOrCreateCart(ctx, userID)
	if err != nil {
		a.note.Notify(Notice{Level: LevelError, Message: err.Error()})
		return cart.Item{}, err
	}
	item, err := a.carts.AddToCart(ctx, c.ID, menuItemID, quantity)
	if err != nil {
		a.note.Notify(Notice{Level: LevelError, Message: err.Error()})
		return cart.Item{}, err
	}
	a.note.Notify(Notice{Level: LevelSuccess, Message: "item added to cart"})
	return item, nil
}
