// Package domain contains persistence models for submitted bills.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// VerificationStatus represents bill lifecycle states.
type VerificationStatus string

const (
	StatusPending    VerificationStatus = "pending"
	StatusProcessing VerificationStatus = "processing"
	StatusApproved   VerificationStatus = "approved"
	StatusRejected   VerificationStatus = "rejected"
)

// VerificationMethod records how a terminal decision was reached.
type VerificationMethod string

const (
	MethodAutomatic VerificationMethod = "automatic"
	MethodManual    VerificationMethod = "manual"
)

// CashbackStatus tracks the downstream payout, recorded here only.
type CashbackStatus string

const (
	CashbackPending  CashbackStatus = "pending"
	CashbackCredited CashbackStatus = "credited"
	CashbackFailed   CashbackStatus = "failed"
)

// Bill represents a user-submitted purchase receipt under verification.
type Bill struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID     snowflake.ID `gorm:"not null;index:idx_bills_user_created" json:"userId"`
	MerchantID snowflake.ID `gorm:"not null;index" json:"merchantId"`

	ImageURL     string `gorm:"type:text;not null" json:"imageUrl"`
	ThumbnailURL string `gorm:"type:text" json:"thumbnailUrl,omitempty"`
	ImageHash    string `gorm:"type:text;index" json:"imageHash,omitempty"`
	StorageID    string `gorm:"type:text" json:"-"`

	Amount     float64   `gorm:"not null" json:"amount"`
	BillDate   time.Time `gorm:"not null" json:"billDate"`
	BillNumber string    `gorm:"type:text;index" json:"billNumber,omitempty"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`

	ExtractedData datatypes.JSON `gorm:"type:jsonb" json:"extractedData,omitempty"`
	OCRConfidence float64        `gorm:"column:ocr_confidence" json:"ocrConfidence"`

	VerificationStatus VerificationStatus `gorm:"type:text;not null;default:'pending';index" json:"verificationStatus"`
	VerificationMethod VerificationMethod `gorm:"type:text" json:"verificationMethod,omitempty"`
	RejectionReason    string             `gorm:"type:text" json:"rejectionReason,omitempty"`

	CashbackAmount     float64        `gorm:"not null;default:0" json:"cashbackAmount"`
	CashbackPercent    float64        `gorm:"not null;default:0" json:"cashbackPercent"`
	CashbackStatus     CashbackStatus `gorm:"type:text;not null;default:'pending'" json:"cashbackStatus"`
	CashbackCreditedAt *time.Time     `gorm:"" json:"cashbackCreditedAt,omitempty"`

	FraudScore int            `gorm:"not null;default:0" json:"fraudScore"`
	FraudFlags datatypes.JSON `gorm:"type:jsonb" json:"fraudFlags,omitempty"`

	ReviewedBy *snowflake.ID `gorm:"index" json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time    `gorm:"" json:"reviewedAt,omitempty"`

	ResubmissionCount   int            `gorm:"not null;default:0" json:"resubmissionCount"`
	ResubmissionHistory datatypes.JSON `gorm:"type:jsonb" json:"resubmissionHistory,omitempty"`

	IsActive bool `gorm:"not null;default:true;index" json:"isActive"`

	ProcessingStartedAt   *time.Time `gorm:"" json:"-"`
	ProcessingCompletedAt *time.Time `gorm:"" json:"-"`

	CreatedAt time.Time `gorm:"not null;index:idx_bills_user_created" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (Bill) TableName() string { return "bills" }

// ResubmissionAttempt is one entry of the resubmission audit trail, kept
// so that overwriting the live image does not lose the prior attempt.
type ResubmissionAttempt struct {
	ImageURL        string    `json:"imageUrl"`
	ImageHash       string    `json:"imageHash,omitempty"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

// Statistics aggregates verification outcomes across all active bills.
type Statistics struct {
	TotalBills          int64   `json:"totalBills"`
	PendingReview       int64   `json:"pendingReview"`
	AutoApproved        int64   `json:"autoApproved"`
	AutoRejected        int64   `json:"autoRejected"`
	ManuallyReviewed    int64   `json:"manuallyReviewed"`
	AvgProcessingTimeMS float64 `json:"avgProcessingTimeMs"`
	AvgOCRConfidence    float64 `json:"avgOcrConfidence"`
}
