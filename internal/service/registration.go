package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bloodlink/internal/adapter/geocode"
	"bloodlink/internal/adapter/storage"
	"bloodlink/internal/domain"
	"bloodlink/internal/pkg/validate"
	"bloodlink/pkg/utils"
)

const presignTTL = 15 * time.Minute

// DocumentUpload 注册表单里的一份材料
type DocumentUpload struct {
	Kind        domain.DocumentKind
	Filename    string
	ContentType string
	Content     io.Reader
}

type registrationStore interface {
	Create(ctx context.Context, reg *domain.Registration) error
	FindByID(ctx context.Context, id string) (*domain.Registration, error)
	SetDocumentKey(ctx context.Context, id string, kind domain.DocumentKind, key string) error
}

type accountStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

type documentStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Coordinates, error)
}

type RegistrationService struct {
	regs  registrationStore
	users accountStore
	docs  documentStore
	geo   geocoder
	log   *zap.Logger
}

func NewRegistrationService(regs registrationStore, users accountStore, docs documentStore, geo geocoder, l *zap.Logger) *RegistrationService {
	return &RegistrationService{regs: regs, users: users, docs: docs, geo: geo, log: l}
}

type DonorInput struct {
	Name             string            `json:"name" form:"name" validate:"required,max=128"`
	Email            string            `json:"email" form:"email" validate:"required,email"`
	Phone            string            `json:"phone" form:"phone" validate:"omitempty,max=32"`
	BloodGroup       domain.BloodGroup `json:"bloodGroup" form:"bloodGroup" validate:"required"`
	Address          string            `json:"address" form:"address" validate:"required,max=255"`
	Password         string            `json:"password" form:"password" validate:"omitempty,min=8"`
	ConsentContact   bool              `json:"consentContact" form:"consentContact"`
	ConsentEmergency bool              `json:"consentEmergency" form:"consentEmergency"`

	Documents []DocumentUpload `json:"-" form:"-"`
}

type HospitalInput struct {
	OrgName    string `json:"orgName" form:"orgName" validate:"required,max=191"`
	LicenseNo  string `json:"licenseNo" form:"licenseNo" validate:"required,max=64"`
	ContactMan string `json:"contactPerson" form:"contactPerson" validate:"required,max=64"`
	Email      string `json:"email" form:"email" validate:"required,email"`
	Phone      string `json:"phone" form:"phone" validate:"omitempty,max=32"`
	Address    string `json:"address" form:"address" validate:"required,max=255"`
	Password   string `json:"password" form:"password" validate:"omitempty,min=8"`

	Documents []DocumentUpload `json:"-" form:"-"`
}

// RegisterDonor 见注册流程约定：地理编码尽力而为 → 先落库 →
// 材料并发上传，单份失败只留空引用，绝不回滚已建行
func (s *RegistrationService) RegisterDonor(ctx context.Context, in DonorInput) (*domain.Registration, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	if !in.BloodGroup.Valid() {
		return nil, fmt.Errorf("unknown blood group %q: %w", in.BloodGroup, domain.ErrBadRequest)
	}

	reg := &domain.Registration{
		ID:               utils.NewID(),
		Kind:             domain.KindDonor,
		Name:             in.Name,
		Email:            in.Email,
		Phone:            in.Phone,
		BloodGroup:       in.BloodGroup,
		Address:          in.Address,
		ConsentContact:   in.ConsentContact,
		ConsentEmergency: in.ConsentEmergency,
		Status:           domain.RegPending,
	}
	return s.register(ctx, reg, in.Password, domain.RoleDonor, in.Documents)
}

func (s *RegistrationService) RegisterHospital(ctx context.Context, in HospitalInput) (*domain.Registration, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}

	reg := &domain.Registration{
		ID:         utils.NewID(),
		Kind:       domain.KindHospital,
		Name:       in.ContactMan,
		Email:      in.Email,
		Phone:      in.Phone,
		OrgName:    in.OrgName,
		LicenseNo:  in.LicenseNo,
		ContactMan: in.ContactMan,
		Address:    in.Address,
		Status:     domain.RegPending,
	}
	return s.register(ctx, reg, in.Password, domain.RoleHospital, in.Documents)
}

func (s *RegistrationService) register(ctx context.Context, reg *domain.Registration, password string, role domain.Role, docs []DocumentUpload) (*domain.Registration, error) {
	// 1) 地理编码失败永不阻断注册
	if coords, err := s.geo.Geocode(ctx, reg.Address); err != nil {
		s.log.Warn("geocode failed, keeping nil coordinates",
			zap.String("registration_id", reg.ID), zap.Error(err))
	} else {
		reg.Latitude = &coords.Latitude
		reg.Longitude = &coords.Longitude
	}

	// 2) 先落库，保证后续上传失败也有持久记录
	if err := s.regs.Create(ctx, reg); err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}

	// 3) 材料并发上传，互不影响；失败只告警，引用列留空
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range docs {
		d := d
		g.Go(func() error {
			s.uploadDocument(gctx, reg, d)
			return nil
		})
	}
	_ = g.Wait()

	// 附带开通登录账号（密码可选；邮箱已占用则跳过）
	if password != "" {
		s.ensureAccount(ctx, reg, password, role)
	}
	return reg, nil
}

func (s *RegistrationService) uploadDocument(ctx context.Context, reg *domain.Registration, d DocumentUpload) {
	name := storage.SanitizeFilename(d.Filename)
	key := fmt.Sprintf("registrations/%s/%s_%s", reg.ID, d.Kind, name)
	ct := d.ContentType
	if ct == "" {
		ct = storage.ContentTypeFromName(name)
	}
	if err := s.docs.Upload(ctx, key, d.Content, ct); err != nil {
		s.log.Warn("document upload failed, reference stays null",
			zap.String("registration_id", reg.ID),
			zap.String("kind", string(d.Kind)), zap.Error(err))
		return
	}
	if err := s.regs.SetDocumentKey(ctx, reg.ID, d.Kind, key); err != nil {
		s.log.Warn("set document key failed",
			zap.String("registration_id", reg.ID),
			zap.String("kind", string(d.Kind)), zap.Error(err))
		return
	}
	switch d.Kind {
	case domain.DocIDProof:
		reg.IDProofKey = &key
	case domain.DocMedicalCert:
		reg.MedicalCertKey = &key
	case domain.DocAddressProof:
		reg.AddressProofKey = &key
	}
}

func (s *RegistrationService) ensureAccount(ctx context.Context, reg *domain.Registration, password string, role domain.Role) {
	existing, err := s.users.FindByEmail(ctx, reg.Email)
	if err != nil {
		s.log.Warn("account lookup failed", zap.String("email", reg.Email), zap.Error(err))
		return
	}
	if existing != nil {
		return
	}
	u := &domain.User{
		ID:             utils.NewID(),
		Email:          reg.Email,
		Name:           reg.Name,
		PasswordHash:   utils.HashPassword(password),
		Role:           role,
		RegistrationID: &reg.ID,
	}
	if err := s.users.Create(ctx, u); err != nil {
		s.log.Warn("account create failed", zap.String("email", reg.Email), zap.Error(err))
	}
}

// DocumentURLs 给已上传材料签发限时读链接
func (s *RegistrationService) DocumentURLs(ctx context.Context, id string) (map[domain.DocumentKind]string, error) {
	reg, err := s.regs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("registration %s: %w", id, domain.ErrNotFound)
	}
	urls := make(map[domain.DocumentKind]string)
	for _, kind := range []domain.DocumentKind{domain.DocIDProof, domain.DocMedicalCert, domain.DocAddressProof} {
		key := reg.DocumentKey(kind)
		if key == nil {
			continue
		}
		u, err := s.docs.PresignedURL(ctx, *key, presignTTL)
		if err != nil {
			s.log.Warn("presign failed", zap.String("key", *key), zap.Error(err))
			continue
		}
		urls[kind] = u
	}
	return urls, nil
}
