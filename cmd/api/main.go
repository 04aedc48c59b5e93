package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"bedding-api/internal/config"
	"bedding-api/internal/db"
	"bedding-api/internal/email"
	apihttp "bedding-api/internal/http"
	"bedding-api/internal/repository"
	"bedding-api/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := service.ValidatePermissionTable(); err != nil {
		logger.Fatal("permission table invalid", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}
	dispatcher := email.NewDispatcher(logger, emailSender, email.NewLinkBuilder(cfg.SiteURL))

	var (
		blacklist   service.BlacklistStore
		mailLimiter service.MailRateLimiter
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		}
		cancel()
		// Aun con el ping fallido se usa redis: la blacklist debe fallar
		// cerrado, no degradar a memoria local.
		blacklist = service.NewRedisBlacklistStore(redisClient)
		mailLimiter = service.NewRedisMailRateLimiter(redisClient, 10*time.Minute, 3)
	} else {
		logger.Warn("redis not configured, using in-memory blacklist")
		blacklist = service.NewMemoryBlacklistStore()
		mailLimiter = service.NewMailRateLimiter(10*time.Minute, 3)
	}

	tokenSvc := service.NewTokenService(
		cfg.JWTSecret,
		cfg.JWTAlgorithm,
		time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
	)
	scopeResolver := service.NewScopeResolver()

	authSvc := service.NewAuthService(logger, userRepo, tokenSvc, scopeResolver, blacklist)
	accountSvc := service.NewAccountService(
		logger, userRepo, authSvc, tokenSvc, scopeResolver, dispatcher, mailLimiter,
		time.Duration(cfg.EmailConfirmTokenTTLMinutes)*time.Minute,
		time.Duration(cfg.PasswordResetTokenTTLMinutes)*time.Minute,
		cfg.MinPasswordLength,
	)

	authHandler := apihttp.NewAuthHandler(logger, authSvc, accountSvc)
	router := apihttp.NewRouter(logger, authSvc, authHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
