package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bloodlink/internal/core/cache"
	"bloodlink/internal/domain"
	"bloodlink/internal/service"
	httpez "bloodlink/internal/transport/http/ez"
	mdw "bloodlink/internal/transport/http/middleware"
	"bloodlink/pkg/utils"
)

// 告警：创建/分发、公开列表、响应、到院确认、历史、二维码
func mountAlertActions(api, authed *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(api)
	ezAuth := httpez.New(authed)

	// POST /alerts（医院）：发起方从登录身份解析
	type createIn struct {
		BloodGroup domain.BloodGroup `json:"bloodGroup" binding:"required"`
		Units      int               `json:"units" binding:"required,min=1"`
		Urgency    domain.Urgency    `json:"urgency" binding:"omitempty"`
		Note       string            `json:"note" binding:"omitempty,max=500"`
	}
	type createOut struct {
		Alert        *domain.Alert              `json:"alert"`
		Distribution service.DistributionResult `json:"distribution"`
	}
	httpez.RegisterAction[createIn, createOut](ezAuth, httpez.Action[createIn, createOut]{
		Method: http.MethodPost,
		Path:   "/alerts",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  []string{string(domain.RoleHospital)},
		Handler: func(c *gin.Context, in *createIn) (createOut, error) {
			regID, err := registrationOf(c, d)
			if err != nil {
				return createOut{}, err
			}
			a, res, err := d.AlertSvc.Create(c, service.CreateAlertInput{
				HospitalID: regID,
				BloodGroup: in.BloodGroup,
				Units:      in.Units,
				Urgency:    in.Urgency,
				Note:       in.Note,
			})
			if err != nil {
				return createOut{}, err
			}
			mdw.CountNotification("notified", res.Notified)
			mdw.CountNotification("skipped", res.Skipped)
			return createOut{Alert: a, Distribution: res}, nil
		},
	})

	// GET /alerts/donor 公开告警列表（redis 缓存 + singleflight）
	ezPublic.GET("/alerts/donor", func(c *gin.Context) (any, error) {
		if d.Cache == nil {
			return d.AlertSvc.OpenAlerts(c)
		}
		out, err := cache.GetOrLoadJSON[[]domain.Alert](d.Cache, c, service.FeedCacheKey, d.FeedCacheTTL,
			func(ctx context.Context) (*[]domain.Alert, error) {
				as, err := d.AlertSvc.OpenAlerts(ctx)
				if err != nil {
					return nil, err
				}
				return &as, nil
			})
		if err != nil {
			return nil, httpez.Internal("load alerts failed", err)
		}
		if out == nil {
			return []domain.Alert{}, nil
		}
		return *out, nil
	})

	// GET /alerts/:id/qr 海报二维码（PNG 直出，不走统一 envelope）
	api.GET("/alerts/:id/qr", func(c *gin.Context) {
		a, err := d.AlertSvc.Get(c, c.Param("id"))
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		png, err := utils.QRCodePNG("bloodlink://alerts/"+a.ID, 256)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	// POST /alerts/:id/respond（捐献者接受/拒绝）
	type respondIn struct {
		Action            string     `json:"action" binding:"required,oneof=accept decline"`
		ExpectedArrivalAt *time.Time `json:"expectedArrivalAt" binding:"omitempty"`
	}
	httpez.RegisterAction[respondIn, *domain.DonorResponseHistory](ezAuth, httpez.Action[respondIn, *domain.DonorResponseHistory]{
		Method: http.MethodPost,
		Path:   "/alerts/:id/respond",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  []string{string(domain.RoleDonor)},
		Handler: func(c *gin.Context, in *respondIn) (*domain.DonorResponseHistory, error) {
			donorID, err := registrationOf(c, d)
			if err != nil {
				return nil, err
			}
			return d.AlertSvc.Respond(c, c.Param("id"), donorID, in.Action == "accept", in.ExpectedArrivalAt)
		},
	})

	// POST /alerts/:id/confirm（医院确认到院）
	type confirmIn struct {
		DonorID string `json:"donorId" binding:"required"`
		Units   int    `json:"units" binding:"omitempty,min=1"`
	}
	httpez.RegisterAction[confirmIn, *domain.DonorResponseHistory](ezAuth, httpez.Action[confirmIn, *domain.DonorResponseHistory]{
		Method: http.MethodPost,
		Path:   "/alerts/:id/confirm",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  []string{string(domain.RoleHospital)},
		Handler: func(c *gin.Context, in *confirmIn) (*domain.DonorResponseHistory, error) {
			return d.AlertSvc.ConfirmArrival(c, c.Param("id"), in.DonorID, in.Units)
		},
	})

	// GET /donor/history?donorId= 通知/响应历史（含告警摘要）
	type historyQ struct {
		DonorID string `form:"donorId" binding:"required"`
	}
	httpez.RegisterAction[historyQ, []domain.HistoryEntry](ezPublic, httpez.Action[historyQ, []domain.HistoryEntry]{
		Method: http.MethodGet,
		Path:   "/donor/history",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *historyQ) ([]domain.HistoryEntry, error) {
			return d.AlertSvc.History(c, in.DonorID)
		},
	})

	// GET /donor/donations?donorId= 捐献履历
	httpez.RegisterAction[historyQ, []domain.Donation](ezPublic, httpez.Action[historyQ, []domain.Donation]{
		Method: http.MethodGet,
		Path:   "/donor/donations",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *historyQ) ([]domain.Donation, error) {
			return d.Donations.ListByDonor(c, in.DonorID)
		},
	})
}

// registrationOf 登录用户 → 关联的入网申请 ID
func registrationOf(c *gin.Context, d Deps) (string, error) {
	u, err := d.Users.FindByID(c, c.GetString("userId"))
	if err != nil {
		return "", httpez.Internal("db error", err)
	}
	if u == nil || u.RegistrationID == nil {
		return "", httpez.Forbidden("no registration linked to this account")
	}
	return *u.RegistrationID, nil
}
