package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/handler"
	appointmentHandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	doctorHandler "github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	redisRepo "github.com/jwalitptl/clinic-api/internal/repository/redis"
	"github.com/jwalitptl/clinic-api/internal/router"
	appointmentService "github.com/jwalitptl/clinic-api/internal/service/appointment"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	doctorService "github.com/jwalitptl/clinic-api/internal/service/doctor"
	jwtauth "github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Logger = *logger.NewLogger(cfg.ToLoggerConfig()).Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.ToBrokerConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()

	// Repositories
	appointmentRepo := postgres.NewAppointmentRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	userRepo := postgres.NewUserRepository(db)
	tokenStore := redisRepo.NewTokenStore(rdb)

	jwtSvc, err := jwtauth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry(), cfg.JWT.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token service")
	}
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	mailer := email.New(cfg.ToSMTPConfig(), log.Logger)

	// Services
	authSvc := authService.NewService(userRepo, doctorRepo, tokenStore, jwtSvc, hasher, mailer, authService.Options{
		ProfileCacheTTL: cfg.Auth.ProfileCacheTTL,
		ResetTokenTTL:   cfg.Auth.ResetTokenTTL,
	})
	doctorSvc := doctorService.NewService(doctorRepo, hasher, authSvc, mailer, cfg.Auth.SetPasswordTTL, log.Logger)
	appointmentSvc := appointmentService.NewService(appointmentRepo, doctorRepo)

	var limit rate.Limit
	if cfg.RateLimit.Enabled {
		limit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r, err := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		router.Handlers{
			Health: handler.NewHealth(registry, map[string]handler.Pinger{
				"database": db,
				"redis":    handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
			}),
			Auth: authHandler.NewHandler(authSvc, authHandler.CookieConfig{
				Secure: cfg.IsProduction(),
				MaxAge: cfg.JWT.Expiry(),
			}),
			Doctor:      doctorHandler.NewHandler(doctorSvc),
			Appointment: appointmentHandler.NewHandler(appointmentSvc),
		},
		router.RouterConfig{
			Production:     cfg.IsProduction(),
			RequestTimeout: cfg.Server.RequestTimeout,
			CORSConfig:     middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins...),
			RateLimit:      limit,
			RateBurst:      cfg.RateLimit.Burst,
			MetricsPrefix:  "clinic_http",
			Registerer:     registry,
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("environment", cfg.Environment).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
