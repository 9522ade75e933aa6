package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/raktseva/raktseva-api/internal/config"
	"github.com/raktseva/raktseva-api/internal/email"
	"github.com/raktseva/raktseva-api/internal/geocode"
	"github.com/raktseva/raktseva-api/internal/handler"
	authHandler "github.com/raktseva/raktseva-api/internal/handler/auth"
	bloodrequestHandler "github.com/raktseva/raktseva-api/internal/handler/bloodrequest"
	donorHandler "github.com/raktseva/raktseva-api/internal/handler/donor"
	hospitalHandler "github.com/raktseva/raktseva-api/internal/handler/hospital"
	"github.com/raktseva/raktseva-api/internal/middleware"
	"github.com/raktseva/raktseva-api/internal/repository/postgres"
	redisRepo "github.com/raktseva/raktseva-api/internal/repository/redis"
	"github.com/raktseva/raktseva-api/internal/router"
	authService "github.com/raktseva/raktseva-api/internal/service/auth"
	bloodrequestService "github.com/raktseva/raktseva-api/internal/service/bloodrequest"
	donorService "github.com/raktseva/raktseva-api/internal/service/donor"
	hospitalService "github.com/raktseva/raktseva-api/internal/service/hospital"
	"github.com/raktseva/raktseva-api/pkg/auth"
	"github.com/raktseva/raktseva-api/pkg/logger"
	"github.com/raktseva/raktseva-api/pkg/metrics"
	"github.com/raktseva/raktseva-api/pkg/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	appLogger := logger.New(&logger.Config{Level: level, Pretty: cfg.Log.Pretty})
	log.Logger = *appLogger.Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redisRepo.NewClient(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	m := metrics.New("raktseva")

	userRepo := postgres.NewUserRepository(db)
	donorRepo := postgres.NewDonorRepository(db)
	hospitalRepo := postgres.NewHospitalRepository(db)
	requestRepo := postgres.NewBloodRequestRepository(db)
	interestRepo := postgres.NewInterestRepository(db)
	tokenRepo := redisRepo.NewTokenRepository(redisClient)

	jwtSvc := auth.NewJWTService(auth.JWTConfig{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        cfg.JWT.Expiry(),
		RefreshExpiry: cfg.JWT.RefreshExpiry(),
	})
	emailSvc := email.NewSMTPService(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	geocoder := geocode.New(geocode.Config{
		BaseURL: cfg.Geocode.BaseURL,
		APIKey:  cfg.Geocode.APIKey,
		Timeout: cfg.Geocode.Timeout(),
	}, m)

	authSvc := authService.NewService(userRepo, tokenRepo, jwtSvc, emailSvc, security.NewBcryptHasher(0))
	donorSvc := donorService.NewService(donorRepo, geocoder)
	hospitalSvc := hospitalService.NewService(hospitalRepo, geocoder)
	requestSvc := bloodrequestService.NewService(
		requestRepo, donorRepo, hospitalRepo, interestRepo, userRepo, emailSvc, m)

	authMw := middleware.NewAuthMiddleware(authSvc)

	h := handler.NewHandler(db, redisClient)
	authH := authHandler.NewHandler(authSvc)
	donorH := donorHandler.NewHandler(donorSvc, requestSvc)
	hospitalH := hospitalHandler.NewHandler(hospitalSvc)
	requestH := bloodrequestHandler.NewHandler(requestSvc, donorSvc, hospitalSvc)

	r := router.New(authMw, h, authH, donorH, hospitalH, requestH, m, router.Config{
		RateLimitRPS:   float64(cfg.Server.RateLimitRPS),
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Timeout:        cfg.Server.Timeout(),
		CORS:           middleware.DefaultCORSConfig(),
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
