package domain

import "time"

type ResponseStatus string

const (
	RespNotified  ResponseStatus = "notified"
	RespAccepted  ResponseStatus = "accepted"
	RespDeclined  ResponseStatus = "declined"
	RespConfirmed ResponseStatus = "confirmed" // 终态，之后不可再变
)

// DonorResponseHistory 每次告警通知到某捐献者记一行，
// (alert_id, donor_id) 唯一
type DonorResponseHistory struct {
	ID                string         `gorm:"primaryKey;size:36" json:"id"`
	AlertID           string         `gorm:"size:36;uniqueIndex:uniq_alert_donor;not null" json:"alertId"`
	DonorID           string         `gorm:"size:36;uniqueIndex:uniq_alert_donor;index;not null" json:"donorId"`
	Status            ResponseStatus `gorm:"size:16;not null;default:notified" json:"status"`
	NotifiedAt        time.Time      `gorm:"not null" json:"notifiedAt"`
	RespondedAt       *time.Time     `json:"respondedAt"`
	ExpectedArrivalAt *time.Time     `json:"expectedArrivalAt"`
	CreatedAt         time.Time      `json:"-"`
	UpdatedAt         time.Time      `json:"-"`
}

func (DonorResponseHistory) TableName() string { return "donor_response_histories" }

// HistoryEntry 捐献者历史视图（history join alert）
type HistoryEntry struct {
	DonorResponseHistory
	AlertBloodGroup BloodGroup  `json:"alertBloodGroup"`
	AlertUnits      int         `json:"alertUnits"`
	AlertUrgency    Urgency     `json:"alertUrgency"`
	AlertStatus     AlertStatus `json:"alertStatus"`
	HospitalName    string      `json:"hospitalName"`
}

// Donation 确认到院后的捐献记录（User 的可选捐献履历）
type Donation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	DonorID   string    `gorm:"size:36;index;not null" json:"donorId"`
	AlertID   *string   `gorm:"size:36;index" json:"alertId"`
	Units     int       `gorm:"not null;default:1" json:"units"`
	DonatedAt time.Time `gorm:"not null" json:"donatedAt"`
	CreatedAt time.Time `json:"-"`
}

func (Donation) TableName() string { return "donations" }
