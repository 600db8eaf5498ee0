package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shopfront/adminsync/internal/application/reconcile"
	"github.com/shopfront/adminsync/internal/domain/livelist"
	"github.com/shopfront/adminsync/internal/infrastructure/config"
	"github.com/shopfront/adminsync/internal/infrastructure/gateway"
	"github.com/shopfront/adminsync/internal/infrastructure/logger"
	"github.com/shopfront/adminsync/internal/infrastructure/push"
)

// consoleNotifier prints sync notifications to stdout, the terminal
// equivalent of the admin screen's toast stack.
type consoleNotifier struct{}

func (consoleNotifier) Info(msg string) {
	fmt.Printf("%s  %s\n", time.Now().Format("15:04:05"), msg)
}

func (consoleNotifier) Error(msg string) {
	fmt.Printf("%s  ERROR %s\n", time.Now().Format("15:04:05"), msg)
}

func main() {
	interval := flag.Duration("refresh", time.Minute, "full refresh interval")
	pageSize := flag.Int("page-size", 0, "list window size (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	if *pageSize > 0 {
		cfg.Client.PageSize = *pageSize
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := gateway.NewClient(cfg.Client.BaseURL,
		gateway.WithToken(cfg.Client.Token),
		gateway.WithTimeout(cfg.Client.Timeout),
		gateway.WithLogger(log.Named("gateway")),
	)

	channel := push.NewChannel(cfg.Client.RelayURL,
		push.WithChannelLogger(log.Named("push")),
		push.WithBearer(cfg.Client.Token),
	)
	channel.Start(ctx)
	defer channel.Close()

	notifier := consoleNotifier{}

	coupons := reconcile.New(
		livelist.NewListStore[livelist.Coupon](cfg.Client.PageSize),
		gateway.NewCoupons(client),
		push.NewStream[livelist.Coupon](channel, "coupon", log.Named("coupons")),
		reconcile.WithNotifier(notifier),
		reconcile.WithLogger(log.Named("coupons")),
		reconcile.WithLabel("Coupon"),
		reconcile.WithSession(channel.Session()),
	)
	if err := coupons.Start(); err != nil {
		log.Fatal("failed to start coupon sync", zap.Error(err))
	}
	defer coupons.Close()

	orders := reconcile.New[livelist.Order](
		livelist.NewListStore[livelist.Order](cfg.Client.PageSize),
		gateway.NewOrders(client),
		push.NewStream[livelist.Order](channel, "order", log.Named("orders")),
		reconcile.WithNotifier(notifier),
		reconcile.WithLogger(log.Named("orders")),
		reconcile.WithLabel("Order"),
		reconcile.WithSession(channel.Session()),
	)
	if err := orders.Start(); err != nil {
		log.Fatal("failed to start order sync", zap.Error(err))
	}
	defer orders.Close()

	refresh := func() {
		if err := coupons.Refresh(ctx, 1, cfg.Client.PageSize, nil); err != nil {
			log.Warn("coupon refresh failed", zap.Error(err))
		}
		if err := orders.Refresh(ctx, 1, cfg.Client.PageSize, nil); err != nil {
			log.Warn("order refresh failed", zap.Error(err))
		}
		fmt.Printf("%s  coupons=%d/%d orders=%d/%d\n",
			time.Now().Format("15:04:05"),
			coupons.Store().Len(), coupons.Store().Total(),
			orders.Store().Len(), orders.Store().Total())
	}

	refresh()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("bye")
			return
		case <-ticker.C:
			refresh()
		}
	}
}
