package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/salon-api/internal/app"
	"github.com/jwalitptl/salon-api/internal/config"
	accountHandler "github.com/jwalitptl/salon-api/internal/handler/account"
	authHandler "github.com/jwalitptl/salon-api/internal/handler/auth"
	bookingHandler "github.com/jwalitptl/salon-api/internal/handler/booking"
	"github.com/jwalitptl/salon-api/internal/handler/health"
	promHandler "github.com/jwalitptl/salon-api/internal/handler/prometheus"
	storeHandler "github.com/jwalitptl/salon-api/internal/handler/store"
	"github.com/jwalitptl/salon-api/internal/middleware"
	"github.com/jwalitptl/salon-api/internal/repository/sqlstore"
	"github.com/jwalitptl/salon-api/internal/router"
	accountService "github.com/jwalitptl/salon-api/internal/service/account"
	authService "github.com/jwalitptl/salon-api/internal/service/auth"
	"github.com/jwalitptl/salon-api/internal/service/availability"
	"github.com/jwalitptl/salon-api/internal/service/booking"
	"github.com/jwalitptl/salon-api/internal/service/catalog"
	"github.com/jwalitptl/salon-api/pkg/auth"
	"github.com/jwalitptl/salon-api/pkg/logger"
	"github.com/jwalitptl/salon-api/pkg/metrics"
	"github.com/jwalitptl/salon-api/pkg/security"
)

const metricsNamespace = "salon"

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	appLog.SetGlobal()

	loc, err := cfg.Booking.Location()
	if err != nil {
		appLog.Fatal(err, "invalid booking timezone")
	}

	db, err := sqlstore.NewDB(cfg.Database)
	if err != nil {
		appLog.Fatal(err, "failed to connect to database", "driver", cfg.Database.Driver)
	}
	defer db.Close()

	// Initialize repositories
	base := sqlstore.NewBaseRepository(db)
	storeRepo := sqlstore.NewStoreRepository(base)
	serviceRepo := sqlstore.NewServiceRepository(base)
	hoursRepo := sqlstore.NewHoursRepository(base)
	professionalRepo := sqlstore.NewProfessionalRepository(base)
	accountRepo := sqlstore.NewAccountRepository(base)
	bookingRepo := sqlstore.NewBookingRepository(base)

	m := metrics.NewMetrics(metricsNamespace, prometheus.DefaultRegisterer)

	// Initialize services
	availabilitySvc := availability.NewService(storeRepo, serviceRepo, hoursRepo, bookingRepo, loc,
		availability.WithMetrics(m),
		availability.WithMaxAdvanceDays(cfg.Settings.MaxAdvanceBookingDays),
	)
	bookingSvc := booking.NewService(bookingRepo, storeRepo, loc,
		booking.WithMetrics(m),
		booking.WithLogger(appLog.With("component", "booking")),
		booking.WithMaxAdvanceDays(cfg.Settings.MaxAdvanceBookingDays),
	)
	catalogSvc := catalog.NewService(storeRepo, serviceRepo, hoursRepo, professionalRepo, accountRepo,
		catalog.WithDefaultGranularity(cfg.Booking.DefaultGranularityMinutes),
		catalog.WithLogger(appLog.With("component", "catalog")),
	)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)
	authSvc := authService.NewService(accountRepo, jwtSvc, hasher, appLog.With("component", "auth"))
	accountSvc := accountService.NewService(accountRepo, hasher, appLog.With("component", "account"))

	if cfg.Bootstrap.AdminEmail != "" {
		bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := accountSvc.EnsureAdmin(bootCtx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName)
		cancel()
		if err != nil {
			appLog.Fatal(err, "failed to create bootstrap administrator")
		}
	}

	if err := middleware.RegisterValidators(); err != nil {
		appLog.Fatal(err, "failed to register validators")
	}

	routerCfg := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSConfig:     middleware.CORSConfigFrom(cfg.CORS),
		Settings:       cfg.Settings,
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = router.RateLimitFrom(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.ClientTTL)
	}

	httpMetrics := promHandler.New(metricsNamespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	r := router.NewRouter(
		middleware.NewAuthMiddleware(jwtSvc),
		httpMetrics,
		health.NewHandler(db, httpMetrics.Handler()),
		routerCfg,
		authHandler.NewHandler(authSvc),
		accountHandler.NewHandler(accountSvc),
		storeHandler.NewHandler(catalogSvc, availabilitySvc, bookingSvc),
		bookingHandler.NewHandler(bookingSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var outbox *app.Outbox
	if cfg.Outbox.Enabled {
		outbox, err = app.NewOutbox(cfg, db, appLog, m)
		if err != nil {
			appLog.Fatal(err, "failed to start outbox")
		}
		outbox.Start(ctx)
	}

	go func() {
		appLog.Info("starting server", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(err, "server forced to shutdown")
	}
	if outbox != nil {
		if err := outbox.Wait(); err != nil {
			appLog.Error(err, "failed to close broker")
		}
	}

	appLog.Info("server exited properly")
}
