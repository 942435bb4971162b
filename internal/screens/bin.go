package screens

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-storefront-sync/internal/apiclient"
	"github.com/ariefcatur/go-storefront-sync/internal/cart"
	"github.com/ariefcatur/go-storefront-sync/internal/session"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNotSignedIn = errors.New("sign in required")

type BinView struct {
	CartID int
	Items  []cart.Item
}

// Bin is the cart screen. Local rows change only after the server confirms
// the mutation.
type Bin struct {
	carts *cart.Service
	sess  *session.Store
	note  Notifier
	log   *zap.Logger

	view *Binding[BinView]
}

func NewBin(carts *cart.Service, sess *session.Store, note Notifier, log *zap.Logger) *Bin {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bin{carts: carts, sess: sess, note: note, log: log, view: NewBinding[BinView]()}
}

// Mount resolves the user's cart and loads its items.
func (b *Bin) Mount(ctx context.Context) error {
	userID, ok := b.sess.UserID()
	if !ok {
		b.view.Fail(ErrNotSignedIn)
		return ErrNotSignedIn
	}
	_, err := b.view.Load(ctx, func(ctx context.Context) (BinView, error) {
		c, err := b.carts.GetOrCreateCart(ctx, userID)
		if err != nil {
			return BinView{}, err
		}
		items, err := b.carts.GetCartItems(ctx, c.ID)
		if err != nil {
			return BinView{}, err
		}
		return BinView{CartID: c.ID, Items: items}, nil
	})
	if err != nil {
		b.log.Warn("bin load failed", zap.Int("user_id", userID), zap.Error(err))
	}
	return err
}

func (b *Bin) UpdateQuantity(ctx context.Context, itemID, quantity int) error {
	if quantity < 1 {
		return nil
	}
	if err := b.carts.UpdateCartItemQuantity(ctx, itemID, quantity); err != nil {
		b.note.Notify(Notice{Level: LevelError, Message: err.Error()})
		return err
	}
	b.view.Update(func(v BinView) BinView {
		items := make([]cart.Item, len(v.Items))
		copy(items, v.Items)
		for i := range items {
			if items[i].ID == itemID {
				items[i].Quantity = quantity
			}
		}
		v.Items = items
		return v
	})
	b.note.Notify(Notice{Level: LevelSuccess, Message: "quantity updated"})
	return nil
}

// Remove deletes one row. An item the server no longer has counts as removed.
func (b *Bin) Remove(ctx context.Context, itemID int) error {
	err := b.carts.RemoveFromCart(ctx, itemID)
	if err != nil && !apiclient.IsNotFound(err) {
		b.note.Notify(Notice{Level: LevelError, Message: err.Error()})
		return err
	}
	b.view.Update(func(v BinView) BinView {
		v.Items = without(v.Items, itemID)
		return v
	})
	b.note.Notify(Notice{Level: LevelSuccess, Message: "item removed from cart"})
	return nil
}

func (b *Bin) Clear(ctx context.Context) error {
	v, state, _ := b.view.Snapshot()
	if state != StateReady {
		return nil
	}
	if err := b.carts.ClearCart(ctx, v.CartID); err != nil {
		b.note.Notify(Notice{Level: LevelError, Message: err.Error()})
		return err
	}
	b.view.Update(func(v BinView) BinView {
		v.Items = []cart.Item{}
		return v
	})
	b.note.Notify(Notice{Level: LevelSuccess, Message: "cart cleared"})
	return nil
}

// Total is the sum of price × quantity over the rows on screen.
func (b *Bin) Total() decimal.Decimal {
	v, _, _ := b.view.Snapshot()
	return cart.Total(v.Items)
}

func (b *Bin) View() (BinView, State, error) { return b.view.Snapshot() }

func (b *Bin) Unmount() { b.view.Unmount() }

func without(items []cart.Item, id int) []cart.Item {
	out := make([]cart.Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}
