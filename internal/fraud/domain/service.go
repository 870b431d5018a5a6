// Package domain defines the fraud scoring contract.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Fraud flags are the machine-readable codes of hard-triggered checks.
const (
	FlagDuplicateBill             = "DUPLICATE_BILL"
	FlagDuplicateBillNumber       = "DUPLICATE_BILL_NUMBER"
	FlagDuplicateImage            = "DUPLICATE_IMAGE"
	FlagHighFrequencyUploads      = "HIGH_FREQUENCY_UPLOADS"
	FlagExcessiveDailyUploads     = "EXCESSIVE_DAILY_UPLOADS"
	FlagFutureDatedBill           = "FUTURE_DATED_BILL"
	FlagExpiredBill               = "EXPIRED_BILL"
	FlagMultipleMerchantsVelocity = "MULTIPLE_MERCHANTS_VELOCITY"
)

// FraudulentThreshold is the score above which a submission is treated
// as fraudulent.
const FraudulentThreshold = 70

// Submission carries the fields of one bill the checks score against.
type Submission struct {
	BillID     snowflake.ID
	UserID     snowflake.ID
	MerchantID snowflake.ID
	Amount     float64
	BillDate   time.Time
	BillNumber string
	ImageHash  string
}

// Result is the aggregated outcome of all checks.
type Result struct {
	FraudScore   int      `json:"fraudScore"`
	IsFraudulent bool     `json:"isFraudulent"`
	Flags        []string `json:"flags"`
	Warnings     []string `json:"warnings"`
}

// History summarizes a user's recent fraud record for operators.
type History struct {
	TotalFlagged  int      `json:"totalFlagged"`
	TotalRejected int      `json:"totalRejected"`
	AvgFraudScore float64  `json:"avgFraudScore"`
	RecentFlags   []string `json:"recentFlags"`
}

// CrossUserMatch is one bill sharing a bill number with another user's
// submission against the same merchant.
type CrossUserMatch struct {
	BillID    snowflake.ID `json:"billId"`
	UserID    snowflake.ID `json:"userId"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

type Service interface {
	// Score runs every check concurrently and aggregates the outcome.
	// A failing check contributes zero and never aborts the others.
	Score(ctx context.Context, sub Submission) Result

	UserHistory(ctx context.Context, userID snowflake.ID) (History, error)

	// CrossUserDuplicate surfaces the same bill number submitted by a
	// different user against the same merchant. Operator signal only,
	// never folded into the automatic score.
	CrossUserDuplicate(ctx context.Context, billNumber string, merchantID, excludeUserID snowflake.ID) ([]CrossUserMatch, error)
}
