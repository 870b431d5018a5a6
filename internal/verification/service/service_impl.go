package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/rupeeback/verify/internal/bill/domain"
	"github.com/rupeeback/verify/internal/cache"
	cashbackdomain "github.com/rupeeback/verify/internal/cashback/domain"
	"github.com/rupeeback/verify/internal/clock"
	"github.com/rupeeback/verify/internal/config"
	frauddomain "github.com/rupeeback/verify/internal/fraud/domain"
	"github.com/rupeeback/verify/internal/imagestore"
	merchantdomain "github.com/rupeeback/verify/internal/merchant/domain"
	obsmetrics "github.com/rupeeback/verify/internal/observability/metrics"
	"github.com/rupeeback/verify/internal/ocr"
	"github.com/rupeeback/verify/internal/ratelimit"
	"github.com/rupeeback/verify/internal/verification/domain"
	"github.com/rupeeback/verify/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const resubmitLockTTL = 30 * time.Second

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Node      *snowflake.Node
	Bills     billdomain.Repository
	Merchants merchantdomain.Repository
	Cache     cache.MerchantCache
	Extractor ocr.Extractor
	Fraud     frauddomain.Service
	Cashback  cashbackdomain.Notifier
	Images    imagestore.Store
	Policy    *config.PolicyHolder
	Locks     *ratelimit.Locker           `optional:"true"`
	Metrics   *obsmetrics.PipelineMetrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	node      *snowflake.Node
	bills     billdomain.Repository
	merchants merchantdomain.Repository
	cache     cache.MerchantCache
	extractor ocr.Extractor
	fraud     frauddomain.Service
	cashback  cashbackdomain.Notifier
	images    imagestore.Store
	policy    *config.PolicyHolder
	locks     *ratelimit.Locker
	metrics   *obsmetrics.PipelineMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("verification.service"),
		clock:     p.Clock,
		node:      p.Node,
		bills:     p.Bills,
		merchants: p.Merchants,
		cache:     p.Cache,
		extractor: p.Extractor,
		fraud:     p.Fraud,
		cashback:  p.Cashback,
		images:    p.Images,
		policy:    p.Policy,
		locks:     p.Locks,
		metrics:   p.Metrics,
	}
}

func (s *Service) Submit(ctx context.Context, sub domain.Submission) (*billdomain.Bill, error) {
	if sub.Amount <= 0 || sub.BillDate.IsZero() || sub.Image == nil {
		return nil, domain.ErrInvalidSubmission
	}

	merchant, err := s.lookupMerchant(ctx, sub.MerchantID)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, domain.ErrMerchantNotFound
	}

	stored, err := s.images.Save(ctx, sub.Image, sub.ImageContentType)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	bill := &billdomain.Bill{
		ID:                 s.node.Generate(),
		UserID:             sub.UserID,
		MerchantID:         sub.MerchantID,
		ImageURL:           stored.URL,
		ImageHash:          stored.Hash,
		StorageID:          stored.ID,
		Amount:             sub.Amount,
		BillDate:           sub.BillDate,
		BillNumber:         sub.BillNumber,
		Notes:              sub.Notes,
		VerificationStatus: billdomain.StatusPending,
		CashbackStatus:     billdomain.CashbackPending,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.bills.Insert(ctx, s.db, bill); err != nil {
		if derr := s.images.Delete(ctx, stored.ID); derr != nil {
			s.log.Warn("orphaned image cleanup failed", zap.String("image", stored.ID), zap.Error(derr))
		}
		return nil, err
	}

	s.log.Info("bill submitted",
		zap.Int64("bill_id", int64(bill.ID)),
		zap.Int64("user_id", int64(bill.UserID)),
		zap.Float64("amount", bill.Amount),
	)
	return bill, nil
}

// extractionEnvelope is what gets persisted in the bill's extracted_data
// column: the parsed fields plus the validation outcome.
type extractionEnvelope struct {
	Success    bool          `json:"success"`
	Data       *ocr.BillData `json:"data,omitempty"`
	Confidence float64       `json:"confidence"`
	Error      string        `json:"error,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
}

func (s *Service) ProcessBill(ctx context.Context, billID snowflake.ID) error {
	bill, err := s.bills.FindByID(ctx, s.db, billID)
	if err != nil {
		return err
	}
	if bill == nil {
		return domain.ErrBillNotFound
	}

	start := s.clock.Now()
	claimed, err := s.bills.ClaimForProcessing(ctx, s.db, billID, start)
	if err != nil {
		return err
	}
	if !claimed {
		// Another run owns the bill, or it already reached a decision.
		s.log.Debug("bill not claimable", zap.Int64("bill_id", int64(billID)))
		return nil
	}

	var (
		wg          sync.WaitGroup
		ocrResult   ocr.Result
		fraudResult frauddomain.Result
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		ocrStart := s.clock.Now()
		res, err := s.extractor.Extract(ctx, bill.ImageURL)
		s.metrics.ObserveOCR(s.clock.Now().Sub(ocrStart).Seconds(), err != nil || !res.Success)
		if err != nil {
			s.log.Warn("ocr extraction failed",
				zap.Int64("bill_id", int64(billID)),
				zap.Error(err))
			res = ocr.Result{Success: false, Err: err.Error()}
		}
		ocrResult = res
	}()
	go func() {
		defer wg.Done()
		fraudResult = s.fraud.Score(ctx, frauddomain.Submission{
			BillID:     bill.ID,
			UserID:     bill.UserID,
			MerchantID: bill.MerchantID,
			Amount:     bill.Amount,
			BillDate:   bill.BillDate,
			BillNumber: bill.BillNumber,
			ImageHash:  bill.ImageHash,
		})
	}()
	wg.Wait()

	merchant, merr := s.lookupMerchant(ctx, bill.MerchantID)
	if merr != nil {
		s.log.Warn("merchant lookup failed during processing",
			zap.Int64("bill_id", int64(billID)),
			zap.Error(merr))
	}

	in := DecisionInput{
		OCR:                  ocrResult,
		Fraud:                fraudResult,
		ClaimedAmount:        bill.Amount,
		ClaimedDate:          bill.BillDate,
		MerchantLookupFailed: merr != nil,
		MerchantFound:        merchant != nil,
		Now:                  s.clock.Now(),
	}
	if merchant != nil {
		in.ClaimedMerchant = merchant.Name
		in.MerchantActive = merchant.IsActive
	}
	decision := Decide(in, s.policy.Current())

	if err := s.persistRun(ctx, billID, ocrResult, fraudResult, decision); err != nil {
		return err
	}

	now := s.clock.Now()
	switch decision.Outcome {
	case OutcomeApprove:
		fin := billdomain.Finalization{
			Status:          billdomain.StatusApproved,
			Method:          billdomain.MethodAutomatic,
			CashbackPercent: merchant.CashbackPercent,
			CompletedAt:     now,
		}
		amount, cerr := s.cashback.BillApproved(ctx, bill.ID, bill.UserID, bill.MerchantID, bill.Amount, merchant.CashbackPercent)
		if cerr != nil {
			// The approval stands; the ledger entry is retried out of band.
			s.log.Error("cashback recording failed",
				zap.Int64("bill_id", int64(billID)),
				zap.Error(cerr))
		}
		fin.CashbackAmount = amount
		if err := s.bills.Finalize(ctx, s.db, billID, fin); err != nil {
			return err
		}
		s.metrics.ObserveDecision("approved", "automatic", now.Sub(start).Seconds())
		s.log.Info("bill auto-approved",
			zap.Int64("bill_id", int64(billID)),
			zap.Float64("cashback", amount),
			zap.Int("fraud_score", fraudResult.FraudScore))

	case OutcomeReject:
		err := s.bills.Finalize(ctx, s.db, billID, billdomain.Finalization{
			Status:          billdomain.StatusRejected,
			Method:          billdomain.MethodAutomatic,
			RejectionReason: decision.RejectionReason,
			CompletedAt:     now,
		})
		if err != nil {
			return err
		}
		s.metrics.ObserveDecision("rejected", "automatic", now.Sub(start).Seconds())
		s.log.Info("bill auto-rejected",
			zap.Int64("bill_id", int64(billID)),
			zap.String("reason", decision.RejectionReason),
			zap.Int("fraud_score", fraudResult.FraudScore))

	case OutcomeManualReview:
		if err := s.bills.MarkManualReview(ctx, s.db, billID, now); err != nil {
			return err
		}
		s.metrics.ObserveDecision("manual_review", "automatic", now.Sub(start).Seconds())
		s.log.Info("bill routed to manual review",
			zap.Int64("bill_id", int64(billID)),
			zap.Strings("warnings", decision.Warnings),
			zap.Int("fraud_score", fraudResult.FraudScore))
	}

	return nil
}

func (s *Service) persistRun(ctx context.Context, billID snowflake.ID, ocrResult ocr.Result, fraudResult frauddomain.Result, decision Decision) error {
	now := s.clock.Now()

	envelope, err := json.Marshal(extractionEnvelope{
		Success:    ocrResult.Success,
		Data:       ocrResult.Data,
		Confidence: ocrResult.Confidence,
		Error:      ocrResult.Err,
		Warnings:   decision.Warnings,
	})
	if err != nil {
		return err
	}
	if err := s.bills.SaveExtraction(ctx, s.db, billID, datatypes.JSON(envelope), ocrResult.Confidence, now); err != nil {
		return err
	}

	flags, err := json.Marshal(fraudResult.Flags)
	if err != nil {
		return err
	}
	return s.bills.SaveFraudResult(ctx, s.db, billID, fraudResult.FraudScore, datatypes.JSON(flags), now)
}

func (s *Service) Resubmit(ctx context.Context, billID, userID snowflake.ID, image io.Reader, contentType string) (*billdomain.Bill, error) {
	bill, err := s.bills.FindByID(ctx, s.db, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrBillNotFound
	}
	if bill.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	if bill.VerificationStatus != billdomain.StatusRejected {
		return nil, domain.ErrNotRejected
	}
	if bill.ResubmissionCount >= s.policy.Current().MaxResubmissions {
		return nil, domain.ErrResubmissionLimit
	}

	lockKey := "lock:resubmit:" + strconv.FormatInt(int64(billID), 10)
	token, ok, err := s.locks.TryLock(ctx, lockKey, resubmitLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrResubmissionLocked
	}
	defer func() {
		if rerr := s.locks.Release(ctx, lockKey, token); rerr != nil {
			s.log.Warn("resubmit lock release failed", zap.Error(rerr))
		}
	}()

	stored, err := s.images.Save(ctx, image, contentType)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var history []billdomain.ResubmissionAttempt
	if len(bill.ResubmissionHistory) > 0 {
		if err := json.Unmarshal(bill.ResubmissionHistory, &history); err != nil {
			s.log.Warn("corrupt resubmission history, starting fresh",
				zap.Int64("bill_id", int64(billID)),
				zap.Error(err))
			history = nil
		}
	}
	history = append(history, billdomain.ResubmissionAttempt{
		ImageURL:        bill.ImageURL,
		ImageHash:       bill.ImageHash,
		RejectionReason: bill.RejectionReason,
		SubmittedAt:     now,
	})
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, err
	}

	err = s.bills.ResetForResubmission(ctx, s.db, billID, billdomain.Resubmission{
		ImageURL:  stored.URL,
		ImageHash: stored.Hash,
		StorageID: stored.ID,
		History:   datatypes.JSON(historyJSON),
		Now:       now,
	})
	if err != nil {
		if derr := s.images.Delete(ctx, stored.ID); derr != nil {
			s.log.Warn("orphaned image cleanup failed", zap.String("image", stored.ID), zap.Error(derr))
		}
		return nil, err
	}

	// The hash in the history still identifies the replaced content.
	if bill.StorageID != "" {
		if derr := s.images.Delete(ctx, bill.StorageID); derr != nil {
			s.log.Warn("old image delete failed", zap.String("image", bill.StorageID), zap.Error(derr))
		}
	}

	s.log.Info("bill resubmitted",
		zap.Int64("bill_id", int64(billID)),
		zap.Int("attempt", bill.ResubmissionCount+1))

	return s.bills.FindByID(ctx, s.db, billID)
}

func (s *Service) Bill(ctx context.Context, billID snowflake.ID) (*billdomain.Bill, error) {
	bill, err := s.bills.FindByID(ctx, s.db, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrBillNotFound
	}
	return bill, nil
}

func (s *Service) ManualApprove(ctx context.Context, billID, reviewerID snowflake.ID, notes string) (*billdomain.Bill, error) {
	bill, err := s.bills.FindByID(ctx, s.db, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrBillNotFound
	}
	// A rejected bill is still approvable: operators override wrong
	// automatic rejections. Only a repeat approval is refused.
	if bill.VerificationStatus == billdomain.StatusApproved {
		return nil, domain.ErrAlreadyApproved
	}

	merchant, err := s.lookupMerchant(ctx, bill.MerchantID)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, domain.ErrMerchantNotFound
	}

	now := s.clock.Now()
	fin := billdomain.Finalization{
		Status:          billdomain.StatusApproved,
		Method:          billdomain.MethodManual,
		ReviewedBy:      &reviewerID,
		CashbackPercent: merchant.CashbackPercent,
		Notes:           notes,
		CompletedAt:     now,
	}
	amount, cerr := s.cashback.BillApproved(ctx, bill.ID, bill.UserID, bill.MerchantID, bill.Amount, merchant.CashbackPercent)
	if cerr != nil {
		s.log.Error("cashback recording failed",
			zap.Int64("bill_id", int64(billID)),
			zap.Error(cerr))
	}
	fin.CashbackAmount = amount
	if err := s.bills.Finalize(ctx, s.db, billID, fin); err != nil {
		return nil, err
	}

	s.metrics.ObserveDecision("approved", "manual", 0)
	s.log.Info("bill manually approved",
		zap.Int64("bill_id", int64(billID)),
		zap.Int64("reviewer", int64(reviewerID)))

	return s.bills.FindByID(ctx, s.db, billID)
}

func (s *Service) ManualReject(ctx context.Context, billID, reviewerID snowflake.ID, reason string) (*billdomain.Bill, error) {
	if reason == "" {
		return nil, domain.ErrRejectionReasonRequired
	}

	bill, err := s.bills.FindByID(ctx, s.db, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrBillNotFound
	}
	// The mirror of ManualApprove: an approved bill may still be
	// rejected, only a repeat rejection is refused.
	if bill.VerificationStatus == billdomain.StatusRejected {
		return nil, domain.ErrAlreadyRejected
	}

	now := s.clock.Now()
	err = s.bills.Finalize(ctx, s.db, billID, billdomain.Finalization{
		Status:          billdomain.StatusRejected,
		Method:          billdomain.MethodManual,
		RejectionReason: reason,
		ReviewedBy:      &reviewerID,
		CompletedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveDecision("rejected", "manual", 0)
	s.log.Info("bill manually rejected",
		zap.Int64("bill_id", int64(billID)),
		zap.Int64("reviewer", int64(reviewerID)),
		zap.String("reason", reason))

	return s.bills.FindByID(ctx, s.db, billID)
}

func (s *Service) PendingReview(ctx context.Context, page pagination.Pagination) ([]*billdomain.Bill, error) {
	return s.bills.ListPendingReview(ctx, s.db, page)
}

func (s *Service) Statistics(ctx context.Context) (*billdomain.Statistics, error) {
	return s.bills.Statistics(ctx, s.db)
}

func (s *Service) lookupMerchant(ctx context.Context, id snowflake.ID) (*merchantdomain.Merchant, error) {
	key := fmt.Sprintf("%d", id)
	if m, ok := s.cache.Get(key); ok {
		return m, nil
	}
	m, err := s.merchants.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if m != nil {
		s.cache.Set(key, m)
	}
	return m, nil
}
