package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront-sync/internal/config"
	"github.com/ariefcatur/go-storefront-sync/internal/httpx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	backend := httpx.NewBackend()
	backend.SetStatusAsString(os.Getenv("MOCK_STATUS_AS_STRING") == "true")
	// a couple of orders so the admin panel has something to show
	backend.AddOrder(httpx.Order{ID: 1, UserID: 7, AddressID: 1, TotalPrice: 610,
		OrderItems: []httpx.OrderItem{{ID: 1, MenuItemID: 17, Quantity: 1, PriceAtOrder: 320}, {ID: 2, MenuItemID: 18, Quantity: 1, PriceAtOrder: 290}}})
	backend.AddOrder(httpx.Order{ID: 2, UserID: 7, AddressID: 1, TotalPrice: 210,
		OrderItems: []httpx.OrderItem{{ID: 3, MenuItemID: 21, Quantity: 1, PriceAtOrder: 210}}})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewServerHandler(backend, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// graceful shutdown
	go func() {
		logger.Info("mock storefront listening", zap.String("addr", cfg.HTTPAddr), zap.String("prefix", httpx.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
