package domain

import "time"

type RegistrationKind string

const (
	KindDonor    RegistrationKind = "donor"
	KindHospital RegistrationKind = "hospital"
)

type RegistrationStatus string

const (
	RegPending  RegistrationStatus = "PENDING"
	RegApproved RegistrationStatus = "APPROVED"
	RegRejected RegistrationStatus = "REJECTED"
)

// DocumentKind 注册材料类别，对应各自的对象存储 key 列
type DocumentKind string

const (
	DocIDProof      DocumentKind = "id_proof"
	DocMedicalCert  DocumentKind = "medical_cert"
	DocAddressProof DocumentKind = "address_proof"
)

// Registration 捐献者/医院入网申请。只增不删（审计轨迹），
// 状态仅由管理端 PENDING → APPROVED/REJECTED 流转
type Registration struct {
	ID    string           `gorm:"primaryKey;size:36" json:"id"`
	Kind  RegistrationKind `gorm:"size:16;index;not null" json:"kind"`
	Name  string           `gorm:"size:128;not null" json:"name"`
	Email string           `gorm:"size:191;index" json:"email"`
	Phone string           `gorm:"size:32" json:"phone"`

	// 捐献者字段
	BloodGroup BloodGroup `gorm:"size:4;index" json:"bloodGroup,omitempty"`

	// 医院字段
	OrgName    string `gorm:"size:191" json:"orgName,omitempty"`
	LicenseNo  string `gorm:"size:64" json:"licenseNo,omitempty"`
	ContactMan string `gorm:"size:64" json:"contactPerson,omitempty"`

	Address   string   `gorm:"size:255" json:"address"`
	Latitude  *float64 `json:"latitude"`  // 地理编码尽力而为，可空
	Longitude *float64 `json:"longitude"` // 同上

	// 材料上传成功前为空；部分失败不回滚
	IDProofKey      *string `gorm:"size:255" json:"-"`
	MedicalCertKey  *string `gorm:"size:255" json:"-"`
	AddressProofKey *string `gorm:"size:255" json:"-"`

	ConsentContact   bool `json:"consentContact"`
	ConsentEmergency bool `json:"consentEmergency"`

	Status    RegistrationStatus `gorm:"size:16;index;not null;default:PENDING" json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func (Registration) TableName() string { return "registrations" }

// DocumentKey 返回指定材料的存储 key（未上传为 nil）
func (r *Registration) DocumentKey(kind DocumentKind) *string {
	switch kind {
	case DocIDProof:
		return r.IDProofKey
	case DocMedicalCert:
		return r.MedicalCertKey
	case DocAddressProof:
		return r.AddressProofKey
	}
	return nil
}
