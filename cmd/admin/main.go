package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bloodlink/internal/adapter/geocode"
	"bloodlink/internal/adapter/notify"
	"bloodlink/internal/adapter/storage"
	"bloodlink/internal/core/auth"
	"bloodlink/internal/core/cache"
	"bloodlink/internal/core/config"
	"bloodlink/internal/core/database"
	"bloodlink/internal/core/logger"
	"bloodlink/internal/core/server"
	"bloodlink/internal/repo"
	"bloodlink/internal/service"
	"bloodlink/internal/transport/http/router"
)

// 管理端：审批 / 概览 / 用户管理。迁移由 api 进程负责
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	r := router.NewAdminEngine(buildDeps(cfg, db, jwter, log))

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	log.Info("admin api starting", zap.String("addr", addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	}()
	log.Info("admin api started SUCCESS")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("admin api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}

func buildDeps(cfg *config.Config, db *gorm.DB, jwter *auth.JWTer, log *zap.Logger) router.Deps {
	s3c, err := storage.NewClient(cfg)
	if err != nil {
		log.Fatal("s3 client", zap.Error(err))
	}
	docs := storage.NewStore(s3c, cfg.AWS.Bucket)

	sms, err := notify.NewSMSSender(cfg, log)
	if err != nil {
		log.Fatal("sns client", zap.Error(err))
	}
	mail := notify.NewMailer(cfg, log)
	geo := geocode.New(cfg.Geocode.BaseURL, time.Duration(cfg.Geocode.TimeoutSec)*time.Second)

	var c *cache.Cache
	if cfg.Redis.Addr != "" {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}

	users := repo.NewUserRepo(db)
	regs := repo.NewRegistrationRepo(db)
	alerts := repo.NewAlertRepo(db)
	histories := repo.NewHistoryRepo(db)
	donations := repo.NewDonationRepo(db)
	engage := repo.NewEngageRepo(db)

	alertDeps := service.AlertDeps{
		Alerts:    alerts,
		Histories: histories,
		Donors:    regs,
		Donations: donations,
		SMS:       sms,
		Mail:      mail,
		OpenTTL:   time.Duration(cfg.Alerts.OpenTTLHours) * time.Hour,
		Log:       log,
	}
	if c != nil {
		alertDeps.Cache = c
	}

	return router.Deps{
		Log:          log,
		JWTer:        jwter,
		Cache:        c,
		FeedCacheTTL: time.Duration(cfg.Alerts.CacheTTLSec) * time.Second,
		Users:        users,
		Alerts:       alerts,
		Donations:    donations,

		Registrations: service.NewRegistrationService(regs, users, docs, geo, log),
		AlertSvc:      service.NewAlertService(alertDeps),
		Approvals:     service.NewApprovalService(regs, docs, log),
		Engage:        service.NewEngageService(engage, docs, log),
	}
}
