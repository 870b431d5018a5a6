// Package domain defines the verification pipeline contract.
package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/rupeeback/verify/internal/bill/domain"
	"github.com/rupeeback/verify/pkg/db/pagination"
)

var (
	ErrBillNotFound            = errors.New("bill_not_found")
	ErrMerchantNotFound        = errors.New("merchant_not_found")
	ErrMerchantInactive        = errors.New("merchant_inactive")
	ErrInvalidSubmission       = errors.New("invalid_submission")
	ErrAlreadyApproved         = errors.New("bill_already_approved")
	ErrAlreadyRejected         = errors.New("bill_already_rejected")
	ErrNotRejected             = errors.New("bill_not_rejected")
	ErrNotOwner                = errors.New("bill_not_owned_by_user")
	ErrRejectionReasonRequired = errors.New("rejection_reason_required")
	ErrResubmissionLimit       = errors.New("resubmission_limit_reached")
	ErrResubmissionLocked      = errors.New("resubmission_in_progress")
)

// Submission is one incoming receipt upload.
type Submission struct {
	UserID     snowflake.ID
	MerchantID snowflake.ID
	Amount     float64
	BillDate   time.Time
	BillNumber string
	Notes      string

	Image            io.Reader
	ImageContentType string
}

type Service interface {
	// Submit stores the image and creates a pending bill. It does not
	// run the pipeline; callers enqueue the returned bill for processing.
	Submit(ctx context.Context, sub Submission) (*billdomain.Bill, error)

	// ProcessBill runs the full pipeline on a pending bill. A bill that
	// is no longer pending is skipped without error.
	ProcessBill(ctx context.Context, billID snowflake.ID) error

	// Resubmit replaces the image of a rejected bill and returns it to
	// pending. The prior attempt is preserved in the history.
	Resubmit(ctx context.Context, billID, userID snowflake.ID, image io.Reader, contentType string) (*billdomain.Bill, error)

	Bill(ctx context.Context, billID snowflake.ID) (*billdomain.Bill, error)

	ManualApprove(ctx context.Context, billID, reviewerID snowflake.ID, notes string) (*billdomain.Bill, error)
	ManualReject(ctx context.Context, billID, reviewerID snowflake.ID, reason string) (*billdomain.Bill, error)

	PendingReview(ctx context.Context, page pagination.Pagination) ([]*billdomain.Bill, error)
	Statistics(ctx context.Context) (*billdomain.Statistics, error)
}

// Queue hands bills to the background workers. Enqueue reports false
// when the queue is full; the bill stays pending and is picked up on a
// later resubmission or manual reprocess.
type Queue interface {
	Enqueue(billID snowflake.ID) bool
}
