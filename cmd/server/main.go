// @title          Device Manager API
// @version        1.0
// @description    Accounts, employees and device custody for an equipment inventory.
// @BasePath       /
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/devicemanager/api/docs"
	"github.com/devicemanager/api/internal/api"
	"github.com/devicemanager/api/internal/core/auth"
	"github.com/devicemanager/api/internal/core/custody"
	"github.com/devicemanager/api/internal/core/ports"
	"github.com/devicemanager/api/internal/core/service"
	"github.com/devicemanager/api/internal/infrastructure/db/mongo"
	"github.com/devicemanager/api/internal/infrastructure/db/redis"
	"github.com/devicemanager/api/internal/infrastructure/http/handlers"
	"github.com/devicemanager/api/internal/pkg/config"
	"github.com/devicemanager/api/pkg/logger"
)

const serviceName = "devicemanager"

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
		Env:     cfg.Env,
	})

	hasher, err := auth.NewCredentialHasher(cfg.Login.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("credential hasher")
	}
	tokens, err := auth.NewTokenIssuer(cfg.TokenConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("token issuer")
	}

	ctx := context.Background()
	mongoClient, db, err := mongo.Connect(ctx, cfg.MongoConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("connect to mongodb")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	roles := mongo.NewRoleRepository(db)
	if err := roles.Seed(ctx); err != nil {
		log.Fatal().Err(err).Msg("seed roles")
	}
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("ensure indexes")
	}

	checks := map[string]handlers.Check{"mongodb": handlers.MongoCheck(db)}
	var limiter ports.LoginLimiter
	redisClient, err := redis.Connect(ctx, cfg.RedisConfig())
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable; continuing without login lockout")
	} else {
		defer redisClient.Close()
		limiter = redis.NewLoginLimiter(redisClient, cfg.Login.MaxAttempts, cfg.Login.LockoutWindow)
		checks["redis"] = handlers.RedisCheck(redisClient)
	}

	accounts := mongo.NewAccountRepository(db)
	employees := mongo.NewEmployeeRepository(db)
	devices := mongo.NewDeviceRepository(db)
	assignments := mongo.NewAssignmentRepository(db)

	guard := auth.NewGuard(log)
	resolver := custody.NewResolver(devices, employees, assignments, log)

	router := api.NewRouter(api.Dependencies{
		Auth:      service.NewAuthService(accounts, employees, hasher, tokens, guard, limiter, log),
		Accounts:  service.NewAccountService(accounts, roles, employees, hasher, guard, log),
		Devices:   service.NewDeviceService(devices, accounts, resolver, guard, log),
		Employees: service.NewEmployeeService(employees, guard),
		Tokens:    tokens,
		Readiness: handlers.NewHealthDependenciesHandler(checks, log),
		Log:       log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("server stopped")
}
