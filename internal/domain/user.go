package domain

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHospital Role = "hospital"
	RoleDonor    Role = "donor"
)

// User 登录身份，关联到入网申请（可空：管理员无申请）
type User struct {
	ID             string  `gorm:"primaryKey;size:36" json:"id"`
	Email          string  `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Name           string  `gorm:"size:64;not null" json:"name"`
	PasswordHash   string  `gorm:"size:100;not null" json:"-"`
	Role           Role    `gorm:"size:16;not null;default:donor" json:"role"`
	RegistrationID *string `gorm:"size:36;index" json:"registrationId,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }
