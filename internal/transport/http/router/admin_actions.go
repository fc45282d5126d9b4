package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodlink/internal/domain"
	"bloodlink/internal/repo"
	"bloodlink/internal/service"
	httpez "bloodlink/internal/transport/http/ez"
)

// 管理端：入网裁决、待审列表、告警概览、用户管理
func mountAdminActions(admin *gin.RouterGroup, d Deps) {
	ez := httpez.New(admin)

	// --- 入网裁决（分组已校验 admin） ---
	type decideIn struct {
		DonorID string `json:"donorId" binding:"required"`
	}
	type decideOut struct {
		Success bool                 `json:"success"`
		Donor   *domain.Registration `json:"donor"`
	}
	httpez.RegisterAction[decideIn, decideOut](ez, httpez.Action[decideIn, decideOut]{
		Method: http.MethodPost,
		Path:   "/donor-onboard/approve",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *decideIn) (decideOut, error) {
			reg, err := d.Approvals.Approve(c, in.DonorID)
			if err != nil {
				return decideOut{}, err
			}
			return decideOut{Success: true, Donor: reg}, nil
		},
	})
	httpez.RegisterAction[decideIn, decideOut](ez, httpez.Action[decideIn, decideOut]{
		Method: http.MethodPost,
		Path:   "/donor-onboard/reject",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *decideIn) (decideOut, error) {
			reg, err := d.Approvals.Reject(c, in.DonorID)
			if err != nil {
				return decideOut{}, err
			}
			return decideOut{Success: true, Donor: reg}, nil
		},
	})

	// --- 待审申请（含材料限时链接） ---
	type pageQ struct {
		Offset int `form:"offset,default=0"`
		Limit  int `form:"limit,default=20"`
	}
	type pendingOut struct {
		Total int64                         `json:"total"`
		Items []service.PendingRegistration `json:"items"`
	}
	httpez.RegisterAction[pageQ, pendingOut](ez, httpez.Action[pageQ, pendingOut]{
		Method: http.MethodGet,
		Path:   "/registrations",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *pageQ) (pendingOut, error) {
			if in.Limit <= 0 || in.Limit > 100 {
				in.Limit = 20
			}
			items, total, err := d.Approvals.ListPending(c, in.Offset, in.Limit)
			if err != nil {
				return pendingOut{}, httpez.Internal("list registrations failed", err)
			}
			return pendingOut{Total: total, Items: items}, nil
		},
	})

	// --- 告警概览（通知/接受计数） ---
	type overviewOut struct {
		Total int64                `json:"total"`
		Items []repo.AlertOverview `json:"items"`
	}
	httpez.RegisterAction[pageQ, overviewOut](ez, httpez.Action[pageQ, overviewOut]{
		Method: http.MethodGet,
		Path:   "/alerts",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *pageQ) (overviewOut, error) {
			if in.Limit <= 0 || in.Limit > 100 {
				in.Limit = 20
			}
			items, total, err := d.Alerts.Overview(c, in.Offset, in.Limit)
			if err != nil {
				return overviewOut{}, httpez.Internal("list alerts failed", err)
			}
			return overviewOut{Total: total, Items: items}, nil
		},
	})

	// --- 用户列表 ---
	type listQ struct {
		Offset      int    `form:"offset,default=0"`
		Limit       int    `form:"limit,default=20"`
		Q           string `form:"q"`            // 按 email/name 模糊搜
		WithDeleted bool   `form:"with_deleted"` // 是否包含软删
	}
	type row struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	}
	type listOut struct {
		Total int64 `json:"total"`
		Items []row `json:"items"`
	}
	httpez.RegisterAction[listQ, listOut](ez, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			if in.Limit <= 0 || in.Limit > 100 {
				in.Limit = 20
			}
			us, total, err := d.Users.List(c, in.Offset, in.Limit, in.Q, in.WithDeleted)
			if err != nil {
				return listOut{}, httpez.Internal("list users failed", err)
			}
			out := listOut{Total: total, Items: make([]row, 0, len(us))}
			for _, u := range us {
				out.Items = append(out.Items, row{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)})
			}
			return out, nil
		},
	})

	// --- 封禁（软删） ---
	httpez.RegisterAction[struct{}, gin.H](ez, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/users/:id/ban",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if id == "" {
				return nil, httpez.BadRequest("missing id")
			}
			ok, err := d.Users.SoftDelete(c, id)
			if err != nil {
				return nil, httpez.Internal("ban user failed", err)
			}
			if !ok {
				return nil, httpez.NotFound("user not found")
			}
			return gin.H{"id": id}, nil
		},
	})
}
