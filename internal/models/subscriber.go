package models

import "time"

// SubscriberModel is one newsletter subscriber, keyed by normalized email.
type SubscriberModel struct {
	ID    uint   `json:"id"    gorm:"primaryKey"`
	Email string `json:"email" gorm:"uniqueIndex;size:191;not null"`
	Name  string `json:"name"  gorm:"size:100"`

	// VerificationToken is present only while the row is unverified. It is
	// cleared on first use.
	VerificationToken string `json:"-" gorm:"size:32;index"`

	Verified bool `json:"verified" gorm:"default:false"`
	Active   bool `json:"active"   gorm:"default:false"`

	CreatedAt  time.Time  `json:"created"`
	VerifiedAt *time.Time `json:"verified_at"`
}

func (SubscriberModel) TableName() string { return "subscribers" }
