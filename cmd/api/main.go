package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smallcrm.org/internal/activity"
	"smallcrm.org/internal/auth"
	"smallcrm.org/internal/config"
	"smallcrm.org/internal/crm"
	"smallcrm.org/internal/httpapi"
	"smallcrm.org/internal/obs"
	"smallcrm.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	codec, err := auth.NewCodec(
		[]byte(cfg.AccessSecret), []byte(cfg.RefreshSecret),
		cfg.AccessTTL, cfg.RefreshTTL,
	)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	activities, err := activity.NewService(store.Activities())
	if err != nil {
		log.Fatalf("activity service: %v", err)
	}
	authSvc, err := auth.NewService(store.Users(), codec, activities,
		auth.WithRefreshRotation(cfg.RotateRefresh))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	users, err := auth.NewUsers(store.Users(), activities)
	if err != nil {
		log.Fatalf("users service: %v", err)
	}
	customers, err := crm.NewCustomers(store.Customers(), activities)
	if err != nil {
		log.Fatalf("customers service: %v", err)
	}
	products, err := crm.NewProducts(store.Products(), activities)
	if err != nil {
		log.Fatalf("products service: %v", err)
	}
	orders, err := crm.NewOrders(store.Orders(), store.Products(), store.Customers(), activities)
	if err != nil {
		log.Fatalf("orders service: %v", err)
	}
	dashboard, err := crm.NewDashboard(store.Sales(), store.Products(), store.Customers(), store.Activities())
	if err != nil {
		log.Fatalf("dashboard service: %v", err)
	}

	api := httpapi.New(httpapi.Deps{
		Auth:       authSvc,
		Users:      users,
		Customers:  customers,
		Products:   products,
		Orders:     orders,
		Dashboard:  dashboard,
		Activities: activities,
	}, httpapi.ReadyProbe{DB: store.DB()}, version, httpapi.Options{
		MaxBodyBytes:       cfg.MaxBodyBytes,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	log.Printf("Starting smallcrm-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = store.Close()
	log.Println("Stopped")
}
