package router

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodlink/internal/domain"
	"bloodlink/internal/service"
	httpez "bloodlink/internal/transport/http/ez"
)

// 入网注册（multipart：表单字段 + 具名材料文件）
func mountRegistrationActions(api, authed *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(api)

	httpez.POSTFORM(ezPublic, "/registrations/donor", func(c *gin.Context, form *multipart.Form) (any, error) {
		var in service.DonorInput
		if err := c.ShouldBind(&in); err != nil {
			return nil, httpez.BadRequest(err.Error())
		}
		docs, closers := collectDocuments(form)
		defer closeAll(closers)
		in.Documents = docs

		reg, err := d.Registrations.RegisterDonor(c, in)
		if err != nil {
			return nil, err
		}
		return gin.H{"id": reg.ID, "status": reg.Status}, nil
	})

	httpez.POSTFORM(ezPublic, "/registrations/hospital", func(c *gin.Context, form *multipart.Form) (any, error) {
		var in service.HospitalInput
		if err := c.ShouldBind(&in); err != nil {
			return nil, httpez.BadRequest(err.Error())
		}
		docs, closers := collectDocuments(form)
		defer closeAll(closers)
		in.Documents = docs

		reg, err := d.Registrations.RegisterHospital(c, in)
		if err != nil {
			return nil, err
		}
		return gin.H{"id": reg.ID, "status": reg.Status}, nil
	})

	// 材料限时读链接（审核方 / 本人）
	ezAuth := httpez.New(authed)
	httpez.RegisterAction[struct{}, gin.H](ezAuth, httpez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/registrations/:id/documents",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			urls, err := d.Registrations.DocumentURLs(c, c.Param("id"))
			if err != nil {
				return nil, err
			}
			return gin.H{"documentUrls": urls}, nil
		},
	})
}

// 表单文件字段名 → 材料类别
var documentFields = map[string]domain.DocumentKind{
	"idProof":      domain.DocIDProof,
	"medicalCert":  domain.DocMedicalCert,
	"addressProof": domain.DocAddressProof,
}

func collectDocuments(form *multipart.Form) ([]service.DocumentUpload, []multipart.File) {
	var docs []service.DocumentUpload
	var closers []multipart.File
	for field, kind := range documentFields {
		fhs := form.File[field]
		if len(fhs) == 0 {
			continue
		}
		f, err := fhs[0].Open()
		if err != nil {
			// 打不开当没传，上传策略本就容忍缺失
			continue
		}
		closers = append(closers, f)
		docs = append(docs, service.DocumentUpload{
			Kind:        kind,
			Filename:    fhs[0].Filename,
			ContentType: fhs[0].Header.Get("Content-Type"),
			Content:     f,
		})
	}
	return docs, closers
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
