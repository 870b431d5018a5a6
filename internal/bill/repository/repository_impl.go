package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rupeeback/verify/internal/bill/domain"
	"github.com/rupeeback/verify/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// liveStatuses are the states a bill occupies while it still counts
// against duplicate checks.
var liveStatuses = []domain.VerificationStatus{
	domain.StatusPending,
	domain.StatusProcessing,
	domain.StatusApproved,
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *domain.Bill) error {
	return db.WithContext(ctx).Create(bill).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Bill, error) {
	var bill domain.Bill
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&bill).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) ClaimForProcessing(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("id = ? AND verification_status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"verification_status":   domain.StatusProcessing,
			"processing_started_at": now,
			"updated_at":            now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) SaveExtraction(ctx context.Context, db *gorm.DB, id snowflake.ID, data datatypes.JSON, confidence float64, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"extracted_data": data,
			"ocr_confidence": confidence,
			"updated_at":     now,
		}).Error
}

func (r *repo) SaveFraudResult(ctx context.Context, db *gorm.DB, id snowflake.ID, score int, flags datatypes.JSON, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"fraud_score": score,
			"fraud_flags": flags,
			"updated_at":  now,
		}).Error
}

func (r *repo) Finalize(ctx context.Context, db *gorm.DB, id snowflake.ID, fin domain.Finalization) error {
	updates := map[string]any{
		"verification_status":     fin.Status,
		"verification_method":     fin.Method,
		"processing_completed_at": fin.CompletedAt,
		"updated_at":              fin.CompletedAt,
	}
	if fin.Status == domain.StatusRejected {
		updates["rejection_reason"] = fin.RejectionReason
		// An operator may reject a previously approved bill; the payout
		// fields must not survive the reversal.
		updates["cashback_amount"] = float64(0)
		updates["cashback_percent"] = float64(0)
	}
	if fin.Status == domain.StatusApproved {
		updates["rejection_reason"] = ""
		updates["cashback_amount"] = fin.CashbackAmount
		updates["cashback_percent"] = fin.CashbackPercent
		updates["cashback_status"] = domain.CashbackPending
	}
	if fin.ReviewedBy != nil {
		updates["reviewed_by"] = *fin.ReviewedBy
		updates["reviewed_at"] = fin.CompletedAt
	}
	if fin.Notes != "" {
		updates["notes"] = gorm.Expr("COALESCE(notes, '') || ?", "\nAdmin notes: "+fin.Notes)
	}
	return db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) MarkManualReview(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"verification_status":     domain.StatusPending,
			"verification_method":     domain.MethodManual,
			"processing_completed_at": now,
			"updated_at":              now,
		}).Error
}

func (r *repo) ResetForResubmission(ctx context.Context, db *gorm.DB, id snowflake.ID, sub domain.Resubmission) error {
	return db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"image_url":            sub.ImageURL,
			"image_hash":           sub.ImageHash,
			"storage_id":           sub.StorageID,
			"verification_status":  domain.StatusPending,
			"verification_method":  "",
			"rejection_reason":     "",
			"fraud_score":          0,
			"fraud_flags":          nil,
			"extracted_data":       nil,
			"ocr_confidence":       0,
			"resubmission_count":   gorm.Expr("resubmission_count + 1"),
			"resubmission_history": sub.History,
			"updated_at":           sub.Now,
		}).Error
}

func (r *repo) ListPendingReview(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	p := page.Normalize()
	err := db.WithContext(ctx).
		Where("verification_status = ? AND verification_method = ? AND is_active = ?",
			domain.StatusPending, domain.MethodManual, true).
		Order("created_at asc, id asc").
		Limit(p.Limit).
		Offset(p.Offset()).
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListUnprocessed(ctx context.Context, db *gorm.DB, olderThan time.Time, limit int) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	err := db.WithContext(ctx).
		Where("verification_status = ? AND verification_method = ? AND is_active = ?",
			domain.StatusPending, "", true).
		Where("created_at < ?", olderThan).
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ReleaseStaleProcessing(ctx context.Context, db *gorm.DB, olderThan, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("verification_status = ? AND processing_started_at < ?",
			domain.StatusProcessing, olderThan).
		Updates(map[string]any{
			"verification_status":   domain.StatusPending,
			"processing_started_at": nil,
			"updated_at":            now,
		})
	return res.RowsAffected, res.Error
}

func (r *repo) Statistics(ctx context.Context, db *gorm.DB) (*domain.Statistics, error) {
	// Seconds-between-timestamps has no portable SQL spelling, so the
	// elapsed expression is chosen per dialect.
	elapsedMS := "(EXTRACT(EPOCH FROM processing_completed_at) - EXTRACT(EPOCH FROM created_at)) * 1000"
	switch db.Dialector.Name() {
	case "sqlite":
		elapsedMS = "(julianday(processing_completed_at) - julianday(created_at)) * 86400000"
	case "mysql":
		elapsedMS = "TIMESTAMPDIFF(MICROSECOND, created_at, processing_completed_at) / 1000"
	}

	var stats domain.Statistics
	err := db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_bills,
			COALESCE(SUM(CASE WHEN verification_status = 'pending' AND verification_method = 'manual' THEN 1 ELSE 0 END), 0) AS pending_review,
			COALESCE(SUM(CASE WHEN verification_status = 'approved' AND verification_method = 'automatic' THEN 1 ELSE 0 END), 0) AS auto_approved,
			COALESCE(SUM(CASE WHEN verification_status = 'rejected' AND verification_method = 'automatic' THEN 1 ELSE 0 END), 0) AS auto_rejected,
			COALESCE(SUM(CASE WHEN verification_method = 'manual' THEN 1 ELSE 0 END), 0) AS manually_reviewed,
			COALESCE(AVG(CASE WHEN processing_completed_at IS NOT NULL THEN `+elapsedMS+` END), 0) AS avg_processing_time_ms,
			COALESCE(AVG(CASE WHEN ocr_confidence > 0 THEN ocr_confidence END), 0) AS avg_ocr_confidence
		FROM bills
		WHERE is_active = ?`, true).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *repo) FindActiveDuplicate(ctx context.Context, db *gorm.DB, userID, merchantID snowflake.ID, amount float64, billDate time.Time, excludeID snowflake.ID) (*domain.Bill, error) {
	var bill domain.Bill
	err := db.WithContext(ctx).
		Where("user_id = ? AND merchant_id = ? AND amount = ? AND is_active = ?", userID, merchantID, amount, true).
		Where("verification_status IN ?", liveStatuses).
		Where("bill_date BETWEEN ? AND ?",
			billDate.Add(-domain.DuplicateWindow),
			billDate.Add(domain.DuplicateWindow)).
		Where("id <> ?", excludeID).
		Take(&bill).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) FindActiveByBillNumber(ctx context.Context, db *gorm.DB, userID snowflake.ID, billNumber string, excludeID snowflake.ID) (*domain.Bill, error) {
	var bill domain.Bill
	err := db.WithContext(ctx).
		Where("user_id = ? AND bill_number = ? AND is_active = ?", userID, billNumber, true).
		Where("verification_status IN ?", liveStatuses).
		Where("id <> ?", excludeID).
		Take(&bill).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) FindActiveByImageHash(ctx context.Context, db *gorm.DB, imageHash string, excludeID snowflake.ID) (*domain.Bill, error) {
	var bill domain.Bill
	err := db.WithContext(ctx).
		Where("image_hash = ? AND is_active = ?", imageHash, true).
		Where("verification_status IN ?", liveStatuses).
		Where("id <> ?", excludeID).
		Take(&bill).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) CountActiveSince(ctx context.Context, db *gorm.DB, userID snowflake.ID, since time.Time, excludeID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("user_id = ? AND is_active = ? AND created_at >= ?", userID, true, since).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count, err
}

func (r *repo) CountDistinctMerchantsSince(ctx context.Context, db *gorm.DB, userID snowflake.ID, since time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Bill{}).
		Distinct("merchant_id").
		Where("user_id = ? AND is_active = ? AND created_at >= ?", userID, true, since).
		Count(&count).Error
	return count, err
}

func (r *repo) RecentApprovedAmounts(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]float64, error) {
	var amounts []float64
	err := db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("user_id = ? AND verification_status = ? AND is_active = ?", userID, domain.StatusApproved, true).
		Order("created_at desc").
		Limit(limit).
		Pluck("amount", &amounts).Error
	return amounts, err
}

func (r *repo) RecentBills(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	err := db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&bills).Error
	return bills, err
}

func (r *repo) FindCrossUserBillNumber(ctx context.Context, db *gorm.DB, billNumber string, merchantID, excludeUserID snowflake.ID) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	err := db.WithContext(ctx).
		Where("bill_number = ? AND merchant_id = ? AND user_id <> ? AND is_active = ?",
			billNumber, merchantID, excludeUserID, true).
		Order("created_at desc").
		Limit(20).
		Find(&bills).Error
	return bills, err
}
