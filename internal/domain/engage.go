package domain

import "time"

// Feedback 登录用户的产品反馈，截图可选（存对象存储）
type Feedback struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"size:36;index;not null" json:"userId"`
	Type          string    `gorm:"size:32;not null" json:"type"` // bug / idea / other
	Message       string    `gorm:"size:2000;not null" json:"message"`
	ScreenshotKey *string   `gorm:"size:255" json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (Feedback) TableName() string { return "feedbacks" }

// ContactMessage 未登录访客的联系表单
type ContactMessage struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Name          string    `gorm:"size:128;not null" json:"name"`
	Email         string    `gorm:"size:191;not null" json:"email"`
	Message       string    `gorm:"size:2000;not null" json:"message"`
	AcceptedTerms bool      `gorm:"not null" json:"acceptTerms"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (ContactMessage) TableName() string { return "contact_messages" }
