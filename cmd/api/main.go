package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/config"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/httpx"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-storefront-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/notify"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/payment"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/recon"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	pPaid := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024)
	pPaid.Start(ctx)
	pFailed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentFailed, 1024)
	pFailed.Start(ctx)
	pRemedy := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockRemediation, 1024)
	pRemedy.Start(ctx)

	// Wiring
	repo := &orders.Repo{DB: db}
	stock := &inventory.Service{
		Orders:      repo,
		Stock:       &orders.StockRepo{DB: db},
		Remediation: pRemedy,
		ServiceName: cfg.ServiceName,
	}
	provider := payment.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, 10*time.Second)
	dispatcher := &notify.Dispatcher{Paid: pPaid, Failed: pFailed, Service: cfg.ServiceName}
	rec := &recon.Reconciler{
		Ledger:   repo,
		Stock:    stock,
		Notify:   dispatcher,
		Provider: provider,
		Strict:   cfg.StrictAmounts,
	}

	router := httpx.NewRouter()
	ch := &httpx.CheckoutHandler{
		Repo:     repo,
		Provider: provider,
		Recon:    rec,
		Redis:    rdb,
		Pricing: orders.PricingConfig{
			TaxRateBps:        cfg.TaxRateBps,
			FreeShippingCents: cfg.FreeShippingCents,
			FlatShippingCents: cfg.FlatShippingCents,
		},
		Currency: cfg.Currency,
	}
	ch.Register(router, httpx.Auth(&httpx.SessionStore{Redis: rdb}))

	wh := &httpx.WebhookHandler{Recon: rec, Secret: []byte(cfg.WebhookSecret), Dedup: httpx.NewWebhookDedup(rdb)}
	wh.Register(router)
	if cfg.WebhookSecret == "" {
		log.Println("WARNING: PROVIDER_WEBHOOK_SECRET unset, webhook signatures are not verified")
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pPaid, pFailed, pRemedy} {
		p.Close()
	}
	cancel()
	for _, p := range []*kafkax.Producer{pPaid, pFailed, pRemedy} {
		p.WaitClosed()
	}
}
