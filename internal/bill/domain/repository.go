package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rupeeback/verify/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DuplicateWindow is how far on either side of the claimed bill date the
// duplicate-bill check looks for a matching submission.
const DuplicateWindow = 24 * time.Hour

// Finalization carries the fields written when a bill reaches a decision.
type Finalization struct {
	Status          VerificationStatus
	Method          VerificationMethod
	RejectionReason string
	ReviewedBy      *snowflake.ID
	CashbackAmount  float64
	CashbackPercent float64
	Notes           string
	CompletedAt     time.Time
}

// Resubmission carries the replacement image for a rejected bill.
type Resubmission struct {
	ImageURL  string
	ImageHash string
	StorageID string
	History   datatypes.JSON
	Now       time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bill *Bill) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bill, error)

	// ClaimForProcessing atomically moves a pending bill to processing.
	// Returns false when the bill was not pending, which means another
	// pipeline run already claimed it.
	ClaimForProcessing(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)

	SaveExtraction(ctx context.Context, db *gorm.DB, id snowflake.ID, data datatypes.JSON, confidence float64, now time.Time) error
	SaveFraudResult(ctx context.Context, db *gorm.DB, id snowflake.ID, score int, flags datatypes.JSON, now time.Time) error
	Finalize(ctx context.Context, db *gorm.DB, id snowflake.ID, fin Finalization) error

	// MarkManualReview returns the bill to pending with manual method set,
	// surfacing it in the review queue.
	MarkManualReview(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error

	ResetForResubmission(ctx context.Context, db *gorm.DB, id snowflake.ID, sub Resubmission) error

	ListPendingReview(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*Bill, error)

	// ListUnprocessed returns pending bills that never reached a pipeline
	// run, oldest first. Manual-review bills are excluded; they wait for
	// an operator, not a worker.
	ListUnprocessed(ctx context.Context, db *gorm.DB, olderThan time.Time, limit int) ([]*Bill, error)

	// ReleaseStaleProcessing returns bills whose run started before
	// olderThan but never finished (worker crash, persistence failure)
	// to pending, so the sweeper can retry them.
	ReleaseStaleProcessing(ctx context.Context, db *gorm.DB, olderThan, now time.Time) (int64, error)
	Statistics(ctx context.Context, db *gorm.DB) (*Statistics, error)

	// Bounded window queries backing the fraud checks. All of them consider
	// only active bills and exclude the given bill id so resubmissions do
	// not collide with their own prior state.
	FindActiveDuplicate(ctx context.Context, db *gorm.DB, userID, merchantID snowflake.ID, amount float64, billDate time.Time, excludeID snowflake.ID) (*Bill, error)
	FindActiveByBillNumber(ctx context.Context, db *gorm.DB, userID snowflake.ID, billNumber string, excludeID snowflake.ID) (*Bill, error)
	FindActiveByImageHash(ctx context.Context, db *gorm.DB, imageHash string, excludeID snowflake.ID) (*Bill, error)
	CountActiveSince(ctx context.Context, db *gorm.DB, userID snowflake.ID, since time.Time, excludeID snowflake.ID) (int64, error)
	CountDistinctMerchantsSince(ctx context.Context, db *gorm.DB, userID snowflake.ID, since time.Time) (int64, error)
	RecentApprovedAmounts(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]float64, error)
	RecentBills(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*Bill, error)
	FindCrossUserBillNumber(ctx context.Context, db *gorm.DB, billNumber string, merchantID, excludeUserID snowflake.ID) ([]*Bill, error)
}
