package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/Alturino/mallofhookah/internal/auth"
	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/cart"
	"github.com/Alturino/mallofhookah/internal/checkout"
	"github.com/Alturino/mallofhookah/internal/config"
	"github.com/Alturino/mallofhookah/internal/constants"
	"github.com/Alturino/mallofhookah/internal/controller"
	"github.com/Alturino/mallofhookah/internal/infra"
	"github.com/Alturino/mallofhookah/internal/log"
	"github.com/Alturino/mallofhookah/internal/middleware"
	"github.com/Alturino/mallofhookah/internal/order"
	inOtel "github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/internal/product"
	"github.com/Alturino/mallofhookah/internal/repository"
)

func RunStorefront(c context.Context) {
	c, span := inOtel.Tracer.Start(c, "RunStorefront")
	defer span.End()

	cfg := config.Get(c, constants.APP_STOREFRONT)

	logger := log.Get(filepath.Join("/var/log/", constants.APP_STOREFRONT+".log"), cfg.Application).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_STOREFRONT).
		Str(constants.KEY_TAG, "main RunStorefront").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	shutdownFuncs, err := inOtel.InitOtelSdk(c, constants.APP_STOREFRONT, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		c = logger.WithContext(context.WithoutCancel(c))
		err = inOtel.ShutdownOtel(c, shutdownFuncs)
		if err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing database").Logger()
	logger.Info().Msg("initializing database")
	db, err := infra.NewDatabaseClient(c, cfg.Database)
	if err != nil {
		err = fmt.Errorf("failed initializing database with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger = logger.With().Str(constants.KEY_PROCESS, "closing database").Logger()
		logger.Info().Msg("closing database")
		db.Close()
		logger.Info().Msg("closed database")
	}()
	pg := backend.NewPostgres(
		db,
		backend.ProcedureCreateOrder,
		backend.ProcedureAddOrderItem,
		backend.ProcedureCancelOrder,
	)
	queries := repository.New(pg, pg)
	logger.Info().Msg("initialized database")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing cache").Logger()
	logger.Info().Msg("initializing cache")
	cache, err := infra.NewCacheClient(c, cfg.Cache)
	if err != nil {
		err = fmt.Errorf("failed initializing cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
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
	pricing := checkout.PricingFromConfig(cfg.Checkout)
	identity := auth.NewProvider(queries, cache)
	authService := auth.NewService(queries, cache, cfg.Application.SecretKey, cfg.Application.TokenTTL)
	productService := product.NewProductService(queries, cache)
	cartService := cart.NewCartService(cart.NewRedisPersistence(cache), productService, cfg.Cart.IdleTTL)

	var sender order.Sender = order.NewLogSender(queries)
	if cfg.Email.WebhookURL != "" {
		sender = order.NewWebhookSender(cfg.Email.WebhookURL, cfg.Email.Timeout, sender)
	}
	orderService := order.NewOrderService(
		queries,
		cache,
		productService,
		sender,
		cfg.Email.From,
		cfg.Checkout.ConfirmationTTL,
	)
	submitter := checkout.NewSubmitter(identity, queries, pricing, cfg.Checkout.CompensationTimeout)
	checkoutService := checkout.NewCheckoutService(cartService, identity, submitter, orderService, pricing)
	logger.Info().Msg("initialized services")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(constants.APP_STOREFRONT),
		middleware.Logging,
		middleware.RecoverPanic,
	)
	router.Handle("/metrics", promhttp.Handler())
	authenticate := middleware.Auth(cfg.Application.SecretKey)
	controller.AttachAuthController(router, authenticate, authService)
	controller.AttachProductController(router, productService)
	controller.AttachCartController(router, authenticate, cartService)
	controller.AttachCheckoutController(router, authenticate, checkoutService)
	controller.AttachOrderController(router, authenticate, orderService)
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
				Str(constants.KEY_APP_NAME, constants.APP_STOREFRONT).
				Logger()
			return lg.WithContext(c)
		},
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	var wg sync.WaitGroup
	wg.Add(2)
	go NewProductListener(pg, productService).StartListener(logger.WithContext(c), &wg)
	go NewCartListener(cartService, identity).StartListener(logger.WithContext(c), &wg)

	go func() {
		logger := logger.With().Str(constants.KEY_PROCESS, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("encounter error=%w while running server", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("server stopped accepting requests")
	}()

	<-c.Done()
	logger = logger.With().Str(constants.KEY_PROCESS, "shutting down server").Logger()
	logger.Info().Msg("received interuption signal shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down server with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}
	wg.Wait()
	logger.Info().Msg("shutdown server")
}
