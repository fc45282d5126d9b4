package domain

import "time"

type AlertStatus string

const (
	AlertOpen      AlertStatus = "open"
	AlertFulfilled AlertStatus = "fulfilled"
	AlertExpired   AlertStatus = "expired"
)

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Alert 医院发起的紧急用血请求。状态单向：open → fulfilled / open → expired
type Alert struct {
	ID         string      `gorm:"primaryKey;size:36" json:"id"`
	HospitalID string      `gorm:"size:36;index;not null" json:"hospitalId"` // 发起方 Registration.ID
	BloodGroup BloodGroup  `gorm:"size:4;index;not null" json:"bloodGroup"`
	Units      int         `gorm:"not null" json:"units"`
	Urgency    Urgency     `gorm:"size:16;not null;default:medium" json:"urgency"`
	Note       string      `gorm:"size:500" json:"note,omitempty"`
	Status     AlertStatus `gorm:"size:16;index;not null;default:open" json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

func (Alert) TableName() string { return "alerts" }

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}
