package screens

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront-sync/internal/apiclient"
	"github.com/ariefcatur/go-storefront-sync/internal/orders"
	"github.com/ariefcatur/go-storefront-sync/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrForbidden = errors.New("courier admin role required")

type AdminView struct {
	Orders   []orders.Order
	Statuses *orders.StatusCatalog
}

// AdminPanel lists orders for the courier admin and changes their status.
type AdminPanel struct {
	svc  *orders.Service
	sess *session.Store
	note Notifier
	log  *zap.Logger

	view *Binding[AdminView]
}

func NewAdminPanel(svc *orders.Service, sess *session.Store, note Notifier, log *zap.Logger) *AdminPanel {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminPanel{svc: svc, sess: sess, note: note, log: log, view: NewBinding[AdminView]()}
}

// Mount loads orders and statuses together. Calling it again is the retry.
func (p *AdminPanel) Mount(ctx context.Context) error {
	if !p.sess.IsCourierAdmin() {
		p.log.Warn("unauthorized access to admin panel")
		p.view.Fail(ErrForbidden)
		return ErrForbidden
	}
	_, err := p.view.Load(ctx, func(ctx context.Context) (AdminView, error) {
		var v AdminView
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			list, err := p.svc.FetchOrders(gctx)
			v.Orders = list
			return err
		})
		g.Go(func() error {
			cat, err := p.svc.FetchOrderStatuses(gctx)
			v.Statuses = cat
			return err
		})
		err := g.Wait()
		return v, err
	})
	if err != nil {
		p.log.Warn("admin panel load failed", zap.Error(err))
	}
	return err
}

// LoadMessage is the text shown for a failed Mount.
func LoadMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrForbidden):
		return err.Error()
	case apiclient.IsNotFound(err):
		return "orders endpoint not found"
	default:
		return "could not load data: " + err.Error()
	}
}

// ChangeStatus replaces the row with the server's copy of the order. On
// failure the row is left as it was.
func (p *AdminPanel) ChangeStatus(ctx context.Context, orderID int, status orders.OrderStatus) error {
	updated, err := p.svc.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		p.note.Notify(Notice{Level: LevelError, Message: err.Error()})
		return err
	}
	p.view.Update(func(v AdminView) AdminView {
		list := make([]orders.Order, len(v.Orders))
		copy(list, v.Orders)
		for i := range list {
			if list[i].ID == orderID {
				list[i] = updated
			}
		}
		v.Orders = list
		return v
	})
	p.note.Notify(Notice{Level: LevelSuccess, Message: fmt.Sprintf("order #%d status changed", orderID)})
	return nil
}

// Logout ends the session; the panel stops applying results.
func (p *AdminPanel) Logout(ctx context.Context) {
	p.sess.Logout(ctx)
	p.view.Unmount()
}

func (p *AdminPanel) View() (AdminView, State, error) { return p.view.Snapshot() }

func (p *AdminPanel) Unmount() { p.view.Unmount() }
