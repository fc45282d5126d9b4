package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bloodlink/internal/domain"
	httpez "bloodlink/internal/transport/http/ez"
	"bloodlink/pkg/utils"
)

// 登录 / 身份查询
func mountAuthActions(api, authed *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(api)

	// /auth/login：查不到就自动注册（默认 donor 角色）+ 发 JWT
	type loginIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"     binding:"omitempty,max=64"` // 首次注册可用
	}
	type loginOut struct {
		Token string      `json:"token"`
		IsNew bool        `json:"isNew"`
		User  interface{} `json:"user"`
	}
	httpez.RegisterAction[loginIn, loginOut](ezPublic, httpez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			email := strings.TrimSpace(in.Email)

			u, err := d.Users.FindByEmail(c, email)
			if err != nil {
				return loginOut{}, httpez.Internal("db error", err)
			}

			isNew := false
			if u == nil {
				// 自动注册
				name := strings.TrimSpace(in.Name)
				if name == "" {
					if at := strings.IndexByte(email, '@'); at > 0 {
						name = email[:at]
					} else {
						name = "donor"
					}
				}
				u = &domain.User{
					ID:           utils.NewID(),
					Email:        email,
					Name:         name,
					PasswordHash: utils.HashPassword(in.Password),
					Role:         domain.RoleDonor,
				}
				if e := d.Users.Create(c, u); e != nil {
					// 并发兜底：唯一冲突 → 再查一次
					u2, e2 := d.Users.FindByEmail(c, email)
					if e2 != nil || u2 == nil {
						return loginOut{}, httpez.Internal("login failed", e)
					}
					u = u2
				} else {
					isNew = true
				}
			}
			if !isNew && !utils.CheckPassword(in.Password, u.PasswordHash) {
				return loginOut{}, httpez.Unauthorized("invalid credentials")
			}

			tok, e := d.JWTer.Issue(u.ID, string(u.Role))
			if e != nil || tok == "" {
				return loginOut{}, httpez.Internal("issue token failed", e)
			}
			return loginOut{
				Token: tok, IsNew: isNew,
				User: gin.H{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role},
			}, nil
		},
	})

	// GET /user?email= 身份查询（移动端配套）
	type userQ struct {
		Email string `form:"email" binding:"required,email"`
	}
	httpez.RegisterAction[userQ, *domain.User](ezPublic, httpez.Action[userQ, *domain.User]{
		Method: http.MethodGet,
		Path:   "/user",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *userQ) (*domain.User, error) {
			u, err := d.Users.FindByEmail(c, in.Email)
			if err != nil {
				return nil, httpez.Internal("db error", err)
			}
			if u == nil {
				return nil, httpez.NotFound("user not found")
			}
			return u, nil
		},
	})

	// 鉴权分组：/me
	ezAuth := httpez.New(authed)

	type meOut struct {
		ID             string  `json:"id"`
		Email          string  `json:"email"`
		Name           string  `json:"name"`
		Role           string  `json:"role"`
		RegistrationID *string `json:"registrationId,omitempty"`
	}
	httpez.RegisterAction[struct{}, meOut](ezAuth, httpez.Action[struct{}, meOut]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (meOut, error) {
			u, err := d.Users.FindByID(c, c.GetString("userId"))
			if err != nil {
				return meOut{}, httpez.Internal("db error", err)
			}
			if u == nil {
				return meOut{}, httpez.NotFound("user not found")
			}
			return meOut{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role), RegistrationID: u.RegistrationID}, nil
		},
	})
}
