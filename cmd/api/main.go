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
	"bloodlink/internal/domain"
	"bloodlink/internal/repo"
	"bloodlink/internal/service"
	"bloodlink/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	// 自动迁移
	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(
			&domain.Registration{},
			&domain.Alert{},
			&domain.DonorResponseHistory{},
			&domain.Donation{},
			&domain.User{},
			&domain.Feedback{},
			&domain.ContactMessage{},
		); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// JWT
	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	deps := buildDeps(cfg, db, jwter, log)

	// 路由（捐献者/医院端）
	r := router.NewAPIEngine(deps)

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api start FAILED", zap.Error(err))
		}
	}()
	log.Info("api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("api stopped gracefully")
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

// buildDeps 组装 adapter → repo → service → router 依赖
func buildDeps(cfg *config.Config, db *gorm.DB, jwter *auth.JWTer, log *zap.Logger) router.Deps {
	// 对象存储（证件材料 / 反馈截图）
	s3c, err := storage.NewClient(cfg)
	if err != nil {
		log.Fatal("s3 client", zap.Error(err))
	}
	docs := storage.NewStore(s3c, cfg.AWS.Bucket)

	// 通知渠道（配置缺失自动降级为日志 no-op）
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
		// 避免把 nil *cache.Cache 塞进接口
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
