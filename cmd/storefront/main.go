package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-storefront-sync/internal/apiclient"
	"github.com/ariefcatur/go-storefront-sync/internal/auth"
	"github.com/ariefcatur/go-storefront-sync/internal/cart"
	"github.com/ariefcatur/go-storefront-sync/internal/config"
	"github.com/ariefcatur/go-storefront-sync/internal/events"
	kafkax "github.com/ariefcatur/go-storefront-sync/internal/kafka"
	"github.com/ariefcatur/go-storefront-sync/internal/menu"
	"github.com/ariefcatur/go-storefront-sync/internal/orders"
	"github.com/ariefcatur/go-storefront-sync/internal/redisx"
	"github.com/ariefcatur/go-storefront-sync/internal/screens"
	"github.com/ariefcatur/go-storefront-sync/internal/session"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

const usage = `usage: storefront [flags] <command> [args]

commands:
  login                      sign in with --user and --password
  register                   create a customer account (see register flags)
  logout                     forget the stored identity
  whoami                     show the signed-in user
  menu [category-slug]       list menu items
  add <menu-item-id>         add an item to the cart (--qty, default 1)
  cart                       show the cart and its total
  qty <item-id> <quantity>   change a cart line's quantity
  rm <item-id>               remove a cart line
  clear                      empty the cart
  orders                     list orders (courier admin)
  statuses                   list order statuses
  status <order-id> <status> change an order's status (id or name)

flags:
`

type app struct {
	log     *zap.Logger
	out     *os.File
	sess    *session.Store
	auth    *auth.Client
	menu    *menu.Client
	carts   *cart.Service
	orders  *orders.Service
	note    screens.Notifier
	qty     int
	regForm auth.Registration
}

func main() {
	os.Exit(realMain())
}

// realMain returns the exit code so deferred flushes run before exit.
func realMain() int {
	_ = godotenv.Load()
	cfg := config.Load()

	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	apiURL := fs.String("api", cfg.APIBaseURL, "storefront API base URL")
	contract := fs.String("status-contract", cfg.StatusContract, "order status wire contract: id or name")
	backend := fs.String("session-backend", cfg.SessionBackend, "where the identity is kept: redis or memory")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level")
	user := fs.StringP("user", "u", "", "login for the login command")
	password := fs.StringP("password", "p", "", "password for login and register")
	var a app
	fs.IntVarP(&a.qty, "qty", "q", 1, "quantity for add")
	fs.StringVar(&a.regForm.FirstName, "first-name", "", "register: first name")
	fs.StringVar(&a.regForm.LastName, "last-name", "", "register: last name")
	fs.StringVar(&a.regForm.MiddleName, "middle-name", "", "register: middle name")
	fs.StringVar(&a.regForm.BirthDate, "birth-date", "", "register: birth date (YYYY-MM-DD)")
	fs.StringVar(&a.regForm.Phone, "phone", "", "register: phone")
	fs.StringVar(&a.regForm.Email, "email", "", "register: email")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger, err := config.NewLogger(*logLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	c, err := orders.ParseContract(*contract)
	if err != nil {
		logger.Error("config", zap.Error(err))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// session store
	var kv session.KV
	switch *backend {
	case "memory":
		kv = session.NewMemoryKV()
		logger.Warn("memory session backend: sign-in does not outlive this process")
	default:
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		kv = redisx.NewKV(rdb, cfg.ServiceName)
	}
	a.sess = session.NewStore(kv, logger)
	a.sess.Load(ctx)

	// change notifications: local observers always, Kafka when configured
	bus := events.NewBroadcaster()
	sub, unsubscribe := bus.Subscribe(64)
	defer unsubscribe()
	go func() {
		for e := range sub {
			logger.Debug("change", zap.String("type", e.EventType), zap.String("correlation_id", e.CorrelationID))
		}
	}()
	pub := events.Multi{bus}
	if len(cfg.KafkaBrokers) > 0 {
		prod := kafkax.NewProducer(cfg.KafkaBrokers, 256, logger)
		prod.Start(ctx)
		defer prod.WaitClosed()
		defer prod.Close()
		pub = append(pub, prod)
	}

	api := apiclient.New(*apiURL,
		apiclient.WithLogger(logger),
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithRetries(cfg.HTTPRetries),
	)
	a.log = logger
	a.out = os.Stdout
	a.note = screens.LogNotifier{Log: logger}
	a.auth = auth.New(api, cfg.CourierAdminRoleID, logger)
	a.menu = menu.New(api)
	a.carts = cart.NewService(api,
		cart.WithLogger(logger),
		cart.WithPublisher(pub),
		cart.WithProducerName(cfg.ServiceName))
	a.orders = orders.NewService(api,
		orders.WithLogger(logger),
		orders.WithPublisher(pub),
		orders.WithProducerName(cfg.ServiceName),
		orders.WithContract(c),
		orders.WithStatusFallback(cfg.StatusFallback))
	a.regForm.Login = *user
	a.regForm.Password = *password
	a.regForm.ConfirmPassword = *password

	if err := a.run(ctx, fs.Args(), *user, *password); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
