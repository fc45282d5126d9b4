package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodlink/internal/domain"
	"bloodlink/internal/service"
	httpez "bloodlink/internal/transport/http/ez"
)

// 联系表单（公开）+ 反馈（需登录）
func mountEngageActions(api, authed *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(api)
	ezAuth := httpez.New(authed)

	httpez.RegisterAction[service.ContactInput, *domain.ContactMessage](ezPublic, httpez.Action[service.ContactInput, *domain.ContactMessage]{
		Method: http.MethodPost,
		Path:   "/contact",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *service.ContactInput) (*domain.ContactMessage, error) {
			return d.Engage.SubmitContact(c, *in)
		},
	})

	httpez.RegisterAction[service.FeedbackInput, *domain.Feedback](ezAuth, httpez.Action[service.FeedbackInput, *domain.Feedback]{
		Method: http.MethodPost,
		Path:   "/feedback",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.FeedbackInput) (*domain.Feedback, error) {
			return d.Engage.SubmitFeedback(c, c.GetString("userId"), *in)
		},
	})
}
