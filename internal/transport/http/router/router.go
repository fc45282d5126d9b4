package router

import (
	"time"

	"go.uber.org/zap"

	"bloodlink/internal/core/auth"
	"bloodlink/internal/core/cache"
	"bloodlink/internal/repo"
	"bloodlink/internal/service"
)

// Deps 两个引擎共用的依赖集
type Deps struct {
	Log   *zap.Logger
	JWTer *auth.JWTer

	Cache        *cache.Cache
	FeedCacheTTL time.Duration

	Users     *repo.UserRepo
	Alerts    *repo.AlertRepo
	Donations *repo.DonationRepo

	Registrations *service.RegistrationService
	AlertSvc      *service.AlertService
	Approvals     *service.ApprovalService
	Engage        *service.EngageService
}
