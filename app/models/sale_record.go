package models

import "time"

// Sale provisioning outcomes recorded against ledger entries.
const (
	SaleOutcomePending  = "pending"
	SaleOutcomeEnrolled = "enrolled"
	SaleOutcomeFailed   = "failed"
)

// SaleRecord is one accepted Gumroad sale, appended to the ledger before any
// provisioning attempt. The sale snapshot itself is write-once; only the
// outcome status is updated after provisioning.
type SaleRecord struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	SaleID     string    `gorm:"type:varchar(191);not null;index" json:"sale_id"`
	Email      string    `gorm:"type:varchar(200);not null;index" json:"email"`
	Name       string    `gorm:"type:varchar(200);not null" json:"name"`
	Product    string    `gorm:"type:varchar(191);not null" json:"product"`
	PriceCents int       `gorm:"not null" json:"price"`
	Outcome    string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"outcome"`
	Timestamp  time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}
