// Package domain contains the cashback ledger written after approvals.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EntryStatus tracks whether a ledger entry was handed to the payout side.
type EntryStatus string

const (
	EntryPending  EntryStatus = "pending"
	EntryCredited EntryStatus = "credited"
	EntryFailed   EntryStatus = "failed"
)

// Entry is one cashback ledger row, written once per approved bill.
type Entry struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	BillID     snowflake.ID `gorm:"not null;uniqueIndex" json:"billId"`
	UserID     snowflake.ID `gorm:"not null;index" json:"userId"`
	MerchantID snowflake.ID `gorm:"not null" json:"merchantId"`

	BillAmount float64 `gorm:"not null" json:"billAmount"`
	Percent    float64 `gorm:"not null" json:"percent"`
	Amount     float64 `gorm:"not null" json:"amount"`

	Status EntryStatus `gorm:"type:text;not null;default:'pending'" json:"status"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "cashback_entries" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	FindByBillID(ctx context.Context, db *gorm.DB, billID snowflake.ID) (*Entry, error)
}

// Notifier records earned cashback after a bill is approved. Failures
// are reported to the caller but must never undo the approval.
type Notifier interface {
	BillApproved(ctx context.Context, billID, userID, merchantID snowflake.ID, billAmount, percent float64) (float64, error)
}

// Compute returns the cashback amount for a bill, rounded to paise.
func Compute(billAmount, percent float64) float64 {
	if billAmount <= 0 || percent <= 0 {
		return 0
	}
	raw := billAmount * percent / 100
	return float64(int64(raw*100+0.5)) / 100
}
