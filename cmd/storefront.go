package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	cartController "github.com/Alturino/marketclub/cart/controller"
	cartRes "github.com/Alturino/marketclub/cart/pkg/response"
	cartSvc "github.com/Alturino/marketclub/cart/service"
	checkoutController "github.com/Alturino/marketclub/checkout/controller"
	checkoutSvc "github.com/Alturino/marketclub/checkout/service"
	"github.com/Alturino/marketclub/internal/backend"
	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/constants"
	inHttp "github.com/Alturino/marketclub/internal/http"
	"github.com/Alturino/marketclub/internal/infra"
	"github.com/Alturino/marketclub/internal/log"
	"github.com/Alturino/marketclub/internal/middleware"
	inOtel "github.com/Alturino/marketclub/internal/otel"
	productSvc "github.com/Alturino/marketclub/product/service"
	webhookController "github.com/Alturino/marketclub/webhook/controller"
	webhookSvc "github.com/Alturino/marketclub/webhook/service"
	wholesaleController "github.com/Alturino/marketclub/wholesale/controller"
	wholesaleSvc "github.com/Alturino/marketclub/wholesale/service"
	wishlistController "github.com/Alturino/marketclub/wishlist/controller"
	wishlistSvc "github.com/Alturino/marketclub/wishlist/service"
)

func runStorefrontService(c context.Context) {
	c, span := inOtel.Tracer.Start(c, "runStorefrontService")
	defer span.End()

	cfg := config.Get(c, configName)

	logger := log.Get(cfg.Application.LogFile, cfg.Application.Env).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_STOREFRONT_SERVICE).
		Str(constants.KEY_TAG, "main runStorefrontService").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	shutdownFuncs, err := inOtel.InitOtelSdk(c, cfg.Otel, constants.APP_STOREFRONT_SERVICE)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		// the signal context is already cancelled here
		shutdownCtx, cancel := context.WithTimeout(logger.WithContext(context.Background()), 10*time.Second)
		defer cancel()
		if err := inOtel.ShutdownOtel(shutdownCtx, shutdownFuncs); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing database").Logger()
	logger.Info().Msg("initializing database")
	db := infra.NewDatabaseClient(c, cfg.Database)
	defer func() {
		logger = logger.With().Str(constants.KEY_PROCESS, "closing database").Logger()
		logger.Info().Msg("closing database")
		db.Close()
		logger.Info().Msg("closed database")
	}()
	if err := infra.Migrate(c, db, cfg.Database); err != nil {
		err = fmt.Errorf("failed migrating database with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("initialized database")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing cache").Logger()
	logger.Info().Msg("initializing cache")
	cache := infra.NewCacheClient(c, cfg.Cache)
	defer func() {
		logger = logger.With().Str(constants.KEY_PROCESS, "closing cache").Logger()
		logger.Info().Msg("closing cache")
		if err := cache.Close(); err != nil {
			err = fmt.Errorf("failed closing cache with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("closed cache")
	}()
	logger.Info().Msg("initialized cache")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing services").Logger()
	logger.Info().Msg("initializing services")
	pricing, err := cartRes.NewPricing(cfg.Pricing)
	if err != nil {
		err = fmt.Errorf("failed parsing pricing config with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	backendClient := backend.NewClient(cfg.Backend)
	productService := productSvc.NewProductService(backendClient, cache, cfg.Backend.ProductCacheTTL)
	cartService := cartSvc.NewCartService(backendClient, productService, pricing)
	wholesaleService := wholesaleSvc.NewWholesaleService(backendClient, productService, cfg.Wholesale)
	wishlistService := wishlistSvc.NewWishlistService(backendClient, cartService)
	checkoutService := checkoutSvc.NewCheckoutService(
		backendClient,
		cartService,
		cfg.Wompi,
		checkoutSvc.WithStockCache(productService),
	)
	webhookService := webhookSvc.NewWebhookService(
		checkoutService,
		webhookSvc.NewPostgresLedger(db),
		webhookSvc.NewRedisLocker(cache),
		cfg.Wompi,
	)
	logger.Info().Msg("initialized services")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Use(otelmux.Middleware(constants.APP_STOREFRONT_SERVICE), middleware.Logging, middleware.RecoverPanic)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		healthz(w, r, func(c context.Context) error {
			return errors.Join(db.Ping(c), cache.Ping(c).Err())
		})
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	// the payment provider carries no session and no user token
	webhookController.AttachWebhookController(api, webhookService)

	shop := api.NewRoute().Subrouter()
	shop.Use(middleware.Session(cfg.Session), middleware.Auth)
	cartController.AttachCartController(shop, cartSvc.BASE_PATH_CART, cartService)
	wholesaleController.AttachWholesaleController(shop, wholesaleService)
	wishlistController.AttachWishlistController(shop, wishlistService)
	checkoutController.AttachCheckoutController(shop, checkoutService)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	server := http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext: func(net.Listener) context.Context {
			lg := logger.With().
				Reset().
				Timestamp().
				Caller().
				Stack().
				Str(constants.KEY_APP_NAME, constants.APP_STOREFRONT_SERVICE).
				Logger()
			return lg.WithContext(context.Background())
		},
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	defer func() {
		logger = logger.With().Str(constants.KEY_PROCESS, "shutting down server").Logger()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(logger.WithContext(context.Background()), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			err = fmt.Errorf("failed shutting down server with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
		}
		logger.Info().Msg("shutdown server")
	}()
	logger.Info().Msg("initialized server")

	serverErr := make(chan error, 1)
	go func() {
		logger := logger.With().Str(constants.KEY_PROCESS, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("encounter error=%w while running server", err)
			logger.Error().Err(err).Msg(err.Error())
			serverErr <- err
		}
	}()

	select {
	case <-c.Done():
		logger.Info().Msg("received interuption signal shutting down")
	case err := <-serverErr:
		inOtel.RecordError(err, span)
	}
}

func healthz(w http.ResponseWriter, r *http.Request, ping func(context.Context) error) {
	c, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := ping(c); err != nil {
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusServiceUnavailable,
			"message":    err.Error(),
		})
		return
	}
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "healthy",
	})
}
