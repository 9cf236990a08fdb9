package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/parikart/storefront/internal/config"
	"github.com/parikart/storefront/internal/es"
	"github.com/parikart/storefront/internal/gateway/razorpay"
	"github.com/parikart/storefront/internal/gateway/stripe"
	"github.com/parikart/storefront/internal/handlers"
	"github.com/parikart/storefront/internal/handlers/cart"
	orderhandler "github.com/parikart/storefront/internal/handlers/order"
	paymenthandler "github.com/parikart/storefront/internal/handlers/payment"
	"github.com/parikart/storefront/internal/logging"
	"github.com/parikart/storefront/internal/mykafka"
	ordersvc "github.com/parikart/storefront/internal/service/order"
	paymentsvc "github.com/parikart/storefront/internal/service/payment"
	httpserver "github.com/parikart/storefront/internal/transport/http"
	pkgconfig "github.com/parikart/storefront/pkg/config"
	loggingmw "github.com/parikart/storefront/pkg/middleware/logging"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	pkgconfig.MustNonEmpty(configuration.JWT_SECRET, "JWT_SECRET")
	pkgconfig.MustNonEmpty(configuration.KAFKA_ADDRESS, "KAFKA_ADDRESS")

	logger := logging.New(configuration.LOG_LEVEL)

	ctx := context.Background()
	db, err := config.InitDB(ctx, configuration)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	prod := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})

	// Gateway clients are built once from validated config; a nil client
	// makes the matching payment endpoints answer 503.
	var rzpClient *razorpay.Client
	if configuration.RazorpayConfigured() {
		rzpClient = razorpay.New(configuration.RAZORPAY_KEY_ID, configuration.RAZORPAY_KEY_SECRET)
	} else {
		logger.Warn("razorpay keys missing or placeholders, gateway disabled")
	}

	var stripeClient *stripe.Client
	if configuration.StripeConfigured() {
		stripeClient = stripe.New(configuration.STRIPE_SECRET_KEY)
	} else {
		logger.Warn("stripe key missing or placeholder, gateway disabled")
	}

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		esClient, err = es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init: %v", err)
		}
	} else {
		logger.Warn("ES_URL not set, search disabled")
	}

	orderService := &ordersvc.Service{DB: db, Producer: prod}
	reconciler := &paymentsvc.Reconciler{DB: db, Razorpay: rzpClient, Stripe: stripeClient, Producer: prod}

	baseURL := configuration.BASE_URL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:             db,
		ProductHandler: &handlers.ProductHandler{DB: db},
		SearchHandler:  &handlers.SearchHandler{ES: esClient, Index: "products"},
		CartHandler:    &cart.CartHandler{DB: db, Producer: prod, JWTSecret: jwtSecret},
		OrderHandler:   &orderhandler.OrderHandler{DB: db, Svc: orderService, JWTSecret: jwtSecret},
		PaymentHandler: &paymenthandler.PaymentHandler{
			DB:         db,
			Razorpay:   rzpClient,
			Stripe:     stripeClient,
			Reconciler: reconciler,
			JWTSecret:  jwtSecret,
			BaseURL:    baseURL,
		},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
