package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/ariefcatur/go-storefront-sync/internal/menu"
	"github.com/ariefcatur/go-storefront-sync/internal/orders"
	"github.com/ariefcatur/go-storefront-sync/internal/screens"
	"github.com/ariefcatur/go-storefront-sync/internal/session"
	"go.uber.org/zap"
)

var errUsage = errors.New("bad arguments, see --help")

func (a *app) run(ctx context.Context, args []string, user, password string) error {
	cmd, rest := args[0], args[1:]
	a.log.Debug("command", zap.String("cmd", cmd), zap.Strings("args", rest))

	switch cmd {
	case "login":
		s, err := a.auth.SignIn(ctx, a.sess, user, password)
		var pe *session.PersistenceError
		if errors.As(err, &pe) {
			a.log.Warn("signed in for this run only", zap.Error(err))
		} else if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "signed in as %s (%s)\n", s.User.FullName, s.User.Role)
		return nil
	case "register":
		if err := a.auth.Register(ctx, a.regForm); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "registered, now run: storefront login -u", a.regForm.Login)
		return nil
	case "logout":
		a.sess.Logout(ctx)
		fmt.Fprintln(a.out, "signed out")
		return nil
	case "whoami":
		s, ok := a.sess.Current()
		if !ok {
			return screens.ErrNotSignedIn
		}
		fmt.Fprintf(a.out, "%s (id %d, %s)\n", s.User.FullName, s.UserID, s.User.Role)
		return nil
	case "menu":
		return a.showMenu(ctx, rest)
	case "add":
		id, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		item, err := screens.NewAddToCartAction(a.carts, a.sess, a.note).Run(ctx, id, a.qty)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "added %s x%d (line %d)\n", item.Name, item.Quantity, item.ID)
		return nil
	case "cart":
		return a.withBin(ctx, func(*screens.Bin) error { return nil })
	case "qty":
		id, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		q, err := intArg(rest, 1)
		if err != nil {
			return err
		}
		return a.withBin(ctx, func(b *screens.Bin) error { return b.UpdateQuantity(ctx, id, q) })
	case "rm":
		id, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		return a.withBin(ctx, func(b *screens.Bin) error { return b.Remove(ctx, id) })
	case "clear":
		return a.withBin(ctx, func(b *screens.Bin) error { return b.Clear(ctx) })
	case "orders":
		return a.withAdmin(ctx, func(*screens.AdminPanel) error { return nil })
	case "statuses":
		cat, err := a.orders.FetchOrderStatuses(ctx)
		if err != nil {
			return err
		}
		if cat.Degraded {
			fmt.Fprintln(a.out, "(server catalog unavailable, showing defaults)")
		}
		for _, s := range cat.Statuses {
			fmt.Fprintf(a.out, "%d\t%s\n", s.ID, s.Name)
		}
		return nil
	case "status":
		id, err := intArg(rest, 0)
		if err != nil || len(rest) < 2 {
			return errUsage
		}
		want := orders.OrderStatus{Name: rest[1]}
		if n, err := strconv.Atoi(rest[1]); err == nil {
			want = orders.OrderStatus{ID: n}
		}
		return a.withAdmin(ctx, func(p *screens.AdminPanel) error { return p.ChangeStatus(ctx, id, want) })
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) showMenu(ctx context.Context, args []string) error {
	var (
		items []menu.Item
		err   error
	)
	if len(args) > 0 {
		cat, cerr := a.menu.CategoryBySlug(ctx, args[0])
		if cerr != nil {
			return cerr
		}
		items, err = a.menu.ItemsInCategory(ctx, cat.ID)
	} else {
		items, err = a.menu.Items(ctx)
	}
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\n", it.ID, it.Name, it.Price.StringFixed(2))
	}
	return w.Flush()
}

// withBin mounts the cart screen, applies fn, and prints what the screen shows.
func (a *app) withBin(ctx context.Context, fn func(*screens.Bin) error) error {
	bin := screens.NewBin(a.carts, a.sess, a.note, a.log)
	defer bin.Unmount()
	if err := bin.Mount(ctx); err != nil {
		return err
	}
	if err := fn(bin); err != nil {
		return err
	}
	v, _, _ := bin.View()
	if len(v.Items) == 0 {
		fmt.Fprintln(a.out, "cart is empty")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tITEM\tQTY\tSUBTOTAL")
	for _, it := range v.Items {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", it.ID, it.Name, it.Quantity, it.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(w, "\t\ttotal\t%s\n", bin.Total().StringFixed(2))
	return w.Flush()
}

func (a *app) withAdmin(ctx context.Context, fn func(*screens.AdminPanel) error) error {
	panel := screens.NewAdminPanel(a.orders, a.sess, a.note, a.log)
	defer panel.Unmount()
	if err := panel.Mount(ctx); err != nil {
		return errors.New(screens.LoadMessage(err))
	}
	if err := fn(panel); err != nil {
		return err
	}
	v, _, _ := panel.View()
	if v.Statuses != nil && v.Statuses.Degraded {
		fmt.Fprintln(a.out, "(server status catalog unavailable, showing defaults)")
	}
	if len(v.Orders) == 0 {
		fmt.Fprintln(a.out, "no orders")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tCUSTOMER\tTOTAL\tSTATUS\tCREATED")
	for _, o := range v.Orders {
		customer := "unknown customer"
		if o.Customer != nil && o.Customer.FullName != "" {
			customer = o.Customer.FullName
		}
		status := o.Status.Name
		if status == "" {
			if s, ok := v.Statuses.ByID(o.Status.ID); ok {
				status = s.Name
			}
		}
		if orders.IsTerminal(o.Status) {
			status += " (final)"
		}
		fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\n", o.ID, customer, o.TotalPrice.StringFixed(2), status, o.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func intArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", args[i])
	}
	return n, nil
}
