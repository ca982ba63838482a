package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appinv "github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/notification"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	appshipping "github.com/Zhima-Mochi/minishop-checkout/internal/application/shipping"
	appwebhook "github.com/Zhima-Mochi/minishop-checkout/internal/application/webhook"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/ledger"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/config"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/mysql"
	infraobs "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/provider/carrier"
	providerpayment "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/provider/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/redislock"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	baseLogger := logging.MustNew(logging.Options{
		Service: cfg.Service.Name,
		Env:     cfg.Service.Env,
		Level:   cfg.Service.LogLevel,
		File:    cfg.Service.LogFile,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	counters, histograms := prometrics.Standard(prometrics.New(prometheus.DefaultRegisterer, "", ""))
	tel := infraobs.New(oteltrace.New(cfg.Service.Name), zaplogger.New(baseLogger), counters, histograms)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				systemLogger.Warn("resource_close_error", zap.Error(err))
			}
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		systemLogger.Fatal("store_open_error", zap.Error(err))
	}

	var locker dompay.Locker = memory.NewLocker()
	if cfg.Redis.Addr != "" {
		client, err := redislock.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			systemLogger.Fatal("redis_dial_error", zap.Error(err))
		}
		closers = append(closers, client.Close)
		locker = redislock.New(client, cfg.Redis.Prefix)
	}

	// In-process outbox; subscribers run behind the event observability wrapper.
	bus := outbox.NewBus(tel, outbox.Options{})
	subscriber := workerpresentation.NewSubscriber(bus, tel)
	notification.NewWorker(store, notification.LogNotifier{}, cfg.Notification.TeamEmail, tel).Start(subscriber)

	if cfg.RabbitMQ.URL != "" {
		conn, ch, err := outbox.DialAMQP(cfg.RabbitMQ.URL)
		if err != nil {
			systemLogger.Fatal("rabbitmq_dial_error", zap.Error(err))
		}
		closers = append(closers, conn.Close, ch.Close)
		relay, err := outbox.NewAMQPRelay(ch, cfg.RabbitMQ.Exchange, tel)
		if err != nil {
			systemLogger.Fatal("rabbitmq_exchange_error", zap.Error(err))
		}
		relay.Attach(subscriber, notification.Events()...)
	}
	bus.Start(context.Background())

	ids := id.NewUUIDGenerator()
	gateway := providerpayment.New(providerpayment.Config{
		BaseURL:     cfg.Payment.BaseURL,
		AccessToken: cfg.Payment.AccessToken,
		Sandbox:     cfg.Payment.Sandbox,
		Timeout:     cfg.Payment.Timeout,
	})
	carrierClient := carrier.New(carrier.Config{
		BaseURL: cfg.Shipping.BaseURL,
		Token:   cfg.Shipping.Token,
		Secret:  cfg.Shipping.Secret,
		Timeout: cfg.Shipping.Timeout,
	})

	paymentCfg := apppay.Config{
		FrontendURL:   cfg.Payment.FrontendURL,
		APIURL:        cfg.Payment.APIURL,
		Currency:      cfg.Order.Currency,
		PreferenceTTL: cfg.Payment.PreferenceTTL,
		LockTTL:       cfg.Payment.LockTTL,
		Retry:         apppay.Backoff{Attempts: cfg.Payment.RetryAttempts, Initial: cfg.Payment.RetryInitial},
	}
	shippingCfg := appshipping.Config{
		AccountID: cfg.Shipping.AccountID,
		OriginID:  cfg.Shipping.OriginID,
		DefaultParcel: appshipping.ParcelDefaults{
			WeightGrams: cfg.Shipping.Parcel.WeightGrams,
			LengthCM:    cfg.Shipping.Parcel.LengthCM,
			WidthCM:     cfg.Shipping.Parcel.WidthCM,
			HeightCM:    cfg.Shipping.Parcel.HeightCM,
		},
	}

	guard := appinv.NewGuard(store, nil, tel)
	reconcile := apppay.NewReconcileUseCase(store, gateway, locker, ids, bus, paymentCfg, nil, tel)
	svc := httppresentation.Services{
		CreateOrder: apporder.NewCreateOrderUseCase(store, guard, ids, bus,
			apporder.Config{TaxRate: cfg.TaxRate(), NumberPrefix: cfg.Order.NumberPrefix}, nil, tel),
		Orders:           apporder.NewQueries(store, nil, tel),
		UpdateStatus:     apporder.NewUpdateStatusUseCase(store, nil, tel),
		ApplyShipping:    apporder.NewApplyShippingUseCase(store, nil, tel),
		Inventory:        guard,
		CreatePreference: apppay.NewCreatePreferenceUseCase(store, gateway, ids, paymentCfg, nil, tel),
		Payments:         apppay.NewManager(store, reconcile, nil, tel),
		Webhooks: appwebhook.NewReceiver(store, reconcile, appwebhook.Config{
			Secret:        cfg.Webhook.Secret,
			AllowUnsigned: cfg.Webhook.AllowUnsigned,
		}, nil, tel),
		Quote: appshipping.NewQuoteUseCase(store, carrierClient, shippingCfg, tel),
		Book:  appshipping.NewBookUseCase(store, carrierClient, ids, bus, shippingCfg, nil, tel),
		Track: appshipping.NewTrackUseCase(store, carrierClient, nil, tel),
	}

	handler := httppresentation.NewHandler(svc,
		httppresentation.NewAuthenticator(cfg.Auth.JWTSecret),
		httppresentation.NewRateLimiter(cfg.Auth.RatePerMinute, cfg.Auth.RateBurst),
		tel,
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: cors.New(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
		}).Handler(mux),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("redis_lock", cfg.Redis.Addr != ""),
			zap.Bool("amqp_relay", cfg.RabbitMQ.URL != ""),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		systemLogger.Error("event_bus_stop_error", zap.Error(err))
	}
}

func openStore(cfg *config.Config) (ledger.Store, error) {
	if cfg.Store.Driver != "mysql" {
		return memory.NewStore(), nil
	}
	db, err := mysql.Open(mysql.Options{
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		Migrate:         cfg.Store.Migrate,
	})
	if err != nil {
		return nil, err
	}
	return mysql.NewStore(db), nil
}
