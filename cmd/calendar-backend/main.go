package main

import (
	"context"
	"crypto/rand"
	"log"
	"net/http"

	"github.com/kalendo/calendar-backend/internal/api"
	analytics_service "github.com/kalendo/calendar-backend/internal/business/analytics"
	calendars_service "github.com/kalendo/calendar-backend/internal/business/calendars"
	events_service "github.com/kalendo/calendar-backend/internal/business/events"
	google_service "github.com/kalendo/calendar-backend/internal/business/google"
	"github.com/kalendo/calendar-backend/internal/config"
	"github.com/kalendo/calendar-backend/internal/database"
	"github.com/kalendo/calendar-backend/internal/database/calendars"
	"github.com/kalendo/calendar-backend/internal/database/events"
	"github.com/kalendo/calendar-backend/internal/database/overrides"
	"github.com/kalendo/calendar-backend/internal/database/user"
	"github.com/kalendo/calendar-backend/internal/pkg/gcal"
	"github.com/kalendo/calendar-backend/internal/pkg/jwt"
	"github.com/kalendo/calendar-backend/internal/redis"
	"github.com/xlab/closer"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx := context.Background()

	logger, err := initLogger()
	if err != nil {
		log.Fatalf("unable to initialize logger: %v", err)
	}

	jwts := jwt.NewManager()

	redisPool := redis.NewRedisPool(logger)
	refreshTokens := redis.NewRefreshTokenRepository(redisPool, logger)
	occurrenceCache := redis.NewOccurrenceCache(redisPool, logger)
	gcalTokens := redis.NewGcalTokenRepository(redisPool, logger)

	db, err := database.NewPGX(ctx)
	if err != nil {
		log.Fatalf("unable to initialize db: %v", err)
	}
	usersRepository := user.NewRepository()
	calendarsRepository := calendars.NewRepository()
	eventsRepository := events.NewRepository()
	overridesRepository := overrides.NewRepository()

	eventsService := events_service.NewService(db, logger, eventsRepository, overridesRepository, calendarsRepository, occurrenceCache)
	calendarsService := calendars_service.NewService(db, calendarsRepository, eventsRepository, overridesRepository)
	analyticsService := analytics_service.NewService(calendarsService, eventsService)

	gcalClient, err := gcal.NewClient()
	if err != nil {
		log.Fatalf("unable to initialize google client: %v", err)
	}
	googleService := google_service.NewService(logger, gcalClient, gcalTokens, eventsService, calendarsService)

	api, err := api.NewApi(
		logger,
		rand.Reader,
		jwts,
		refreshTokens,
		db,
		usersRepository,
		eventsService,
		calendarsService,
		analyticsService,
		googleService,
	)
	if err != nil {
		logger.Fatalw("error initiating api", "err", err)
	}

	errLogger, err := zap.NewStdLogAt(logger.Desugar(), zap.ErrorLevel)
	if err != nil {
		logger.Fatalw("error initiating server logger", "err", err)
	}

	server := &http.Server{
		Addr:     ":" + config.Port(),
		Handler:  api,
		ErrorLog: errLogger,
	}

	logger.Infow("Started server", "port", config.Port())
	logger.Fatalw("server error", "err", server.ListenAndServe())
}

func initLogger() (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error

	if config.Production() {
		logger, err = zap.NewProduction()
	} else {
		conf := zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err = conf.Build()
	}

	if err != nil {
		return nil, err
	}

	closer.Bind(func() {
		_ = logger.Sync()
	})

	return logger.Sugar(), nil
}
