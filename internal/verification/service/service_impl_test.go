package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billdomain "github.com/rupeeback/verify/internal/bill/domain"
	billrepo "github.com/rupeeback/verify/internal/bill/repository"
	"github.com/rupeeback/verify/internal/cache"
	cashbackrepo "github.com/rupeeback/verify/internal/cashback/repository"
	cashbackservice "github.com/rupeeback/verify/internal/cashback/service"
	"github.com/rupeeback/verify/internal/clock"
	"github.com/rupeeback/verify/internal/config"
	frauddomain "github.com/rupeeback/verify/internal/fraud/domain"
	"github.com/rupeeback/verify/internal/imagestore"
	merchantdomain "github.com/rupeeback/verify/internal/merchant/domain"
	merchantrepo "github.com/rupeeback/verify/internal/merchant/repository"
	"github.com/rupeeback/verify/internal/ocr"
	"github.com/rupeeback/verify/internal/verification/domain"
	"github.com/rupeeback/verify/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const testSchema = `
CREATE TABLE IF NOT EXISTS bills (
	id BIGINT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	merchant_id BIGINT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT DEFAULT '',
	image_hash TEXT DEFAULT '',
	storage_id TEXT DEFAULT '',
	amount REAL NOT NULL,
	bill_date TIMESTAMP NOT NULL,
	bill_number TEXT DEFAULT '',
	notes TEXT DEFAULT '',
	extracted_data TEXT,
	ocr_confidence REAL NOT NULL DEFAULT 0,
	verification_status TEXT NOT NULL DEFAULT 'pending',
	verification_method TEXT DEFAULT '',
	rejection_reason TEXT DEFAULT '',
	cashback_amount REAL NOT NULL DEFAULT 0,
	cashback_percent REAL NOT NULL DEFAULT 0,
	cashback_status TEXT NOT NULL DEFAULT 'pending',
	cashback_credited_at TIMESTAMP,
	fraud_score INTEGER NOT NULL DEFAULT 0,
	fraud_flags TEXT,
	reviewed_by BIGINT,
	reviewed_at TIMESTAMP,
	resubmission_count INTEGER NOT NULL DEFAULT 0,
	resubmission_history TEXT,
	is_active BOOLEAN NOT NULL DEFAULT true,
	processing_started_at TIMESTAMP,
	processing_completed_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS merchants (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	logo_url TEXT DEFAULT '',
	cashback_percent REAL NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS cashback_entries (
	id BIGINT PRIMARY KEY,
	bill_id BIGINT NOT NULL UNIQUE,
	user_id BIGINT NOT NULL,
	merchant_id BIGINT NOT NULL,
	bill_amount REAL NOT NULL,
	percent REAL NOT NULL,
	amount REAL NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

type stubExtractor struct {
	result ocr.Result
	delay  time.Duration
	calls  atomic.Int32
}

func (s *stubExtractor) Extract(ctx context.Context, imageURL string) (ocr.Result, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.result, nil
}

type stubFraud struct {
	result frauddomain.Result
}

func (s *stubFraud) Score(ctx context.Context, sub frauddomain.Submission) frauddomain.Result {
	return s.result
}

func (s *stubFraud) UserHistory(ctx context.Context, userID snowflake.ID) (frauddomain.History, error) {
	return frauddomain.History{}, nil
}

func (s *stubFraud) CrossUserDuplicate(ctx context.Context, billNumber string, merchantID, excludeUserID snowflake.ID) ([]frauddomain.CrossUserMatch, error) {
	return nil, nil
}

type memStore struct {
	mu      sync.Mutex
	saved   int
	deleted []string
}

func (m *memStore) Save(ctx context.Context, r io.Reader, contentType string) (imagestore.Stored, error) {
	hash, err := imagestore.HashReader(r)
	if err != nil {
		return imagestore.Stored{}, err
	}
	m.mu.Lock()
	m.saved++
	n := m.saved
	m.mu.Unlock()
	id := fmt.Sprintf("img-%d.jpg", n)
	return imagestore.Stored{ID: id, URL: "/images/" + id, Hash: hash}, nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, id)
	m.mu.Unlock()
	return nil
}

type fixture struct {
	svc       *Service
	db        *gorm.DB
	node      *snowflake.Node
	clock     *clock.FakeClock
	extractor *stubExtractor
	fraud     *stubFraud
	store     *memStore
	merchant  *merchantdomain.Merchant
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Exec(testSchema).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	extractor := &stubExtractor{}
	fraud := &stubFraud{}
	store := &memStore{}

	notifier := cashbackservice.New(cashbackservice.Params{
		DB:      db,
		Log:     log,
		Clock:   clk,
		Node:    node,
		Entries: cashbackrepo.Provide(),
	})

	merchant := &merchantdomain.Merchant{
		ID:              node.Generate(),
		Name:            "Big Bazaar",
		CashbackPercent: 5,
		IsActive:        true,
		CreatedAt:       clk.Now(),
		UpdatedAt:       clk.Now(),
	}
	require.NoError(t, db.Create(merchant).Error)

	svc := New(Params{
		DB:        db,
		Log:       log,
		Clock:     clk,
		Node:      node,
		Bills:     billrepo.Provide(),
		Merchants: merchantrepo.Provide(),
		Cache:     cache.NewMerchantCache(),
		Extractor: extractor,
		Fraud:     fraud,
		Cashback:  notifier,
		Images:    store,
		Policy:    config.NewStaticPolicyHolder(config.DefaultVerificationPolicy()),
	}).(*Service)

	return &fixture{
		svc:       svc,
		db:        db,
		node:      node,
		clock:     clk,
		extractor: extractor,
		fraud:     fraud,
		store:     store,
		merchant:  merchant,
	}
}

func (f *fixture) submit(t *testing.T, userID snowflake.ID, amount float64, billDate time.Time) *billdomain.Bill {
	t.Helper()
	bill, err := f.svc.Submit(context.Background(), domain.Submission{
		UserID:           userID,
		MerchantID:       f.merchant.ID,
		Amount:           amount,
		BillDate:         billDate,
		BillNumber:       "INV-" + f.node.Generate().String(),
		Image:            strings.NewReader("receipt-" + f.node.Generate().String()),
		ImageContentType: "image/jpeg",
	})
	require.NoError(t, err)
	return bill
}

func (f *fixture) cleanOCR(amount float64, billDate time.Time) {
	date := billDate
	f.extractor.result = ocr.Result{
		Success:    true,
		Confidence: 0.95,
		Data: &ocr.BillData{
			MerchantName: "Big Bazaar",
			Amount:       amount,
			Date:         &date,
		},
	}
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) *billdomain.Bill {
	t.Helper()
	var bill billdomain.Bill
	require.NoError(t, f.db.Where("id = ?", id).Take(&bill).Error)
	return &bill
}

func TestSubmitCreatesPendingBill(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)

	bill := f.submit(t, f.node.Generate(), 1200, billDate)

	assert.Equal(t, billdomain.StatusPending, bill.VerificationStatus)
	assert.True(t, bill.IsActive)
	assert.NotEmpty(t, bill.ImageURL)
	assert.NotEmpty(t, bill.ImageHash)
	assert.Zero(t, bill.FraudScore)
}

func TestSubmitUnknownMerchant(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Submit(context.Background(), domain.Submission{
		UserID:           f.node.Generate(),
		MerchantID:       f.node.Generate(),
		Amount:           100,
		BillDate:         f.clock.Now(),
		Image:            strings.NewReader("x"),
		ImageContentType: "image/jpeg",
	})
	assert.ErrorIs(t, err, domain.ErrMerchantNotFound)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Submit(context.Background(), domain.Submission{
		UserID:     f.node.Generate(),
		MerchantID: f.merchant.ID,
		Amount:     0,
		BillDate:   f.clock.Now(),
		Image:      strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSubmission)
}

func TestProcessBillAutoApproves(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)

	bill := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), bill.ID))

	got := f.reload(t, bill.ID)
	assert.Equal(t, billdomain.StatusApproved, got.VerificationStatus)
	assert.Equal(t, billdomain.MethodAutomatic, got.VerificationMethod)
	assert.Equal(t, 60.0, got.CashbackAmount) // 5% of 1200
	assert.Equal(t, 5.0, got.CashbackPercent)
	assert.NotNil(t, got.ProcessingCompletedAt)

	// Ledger entry written once.
	var count int64
	require.NoError(t, f.db.Table("cashback_entries").Where("bill_id = ?", bill.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProcessBillRoutesLowConfidenceToReview(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)
	f.extractor.result.Confidence = 0.60

	bill := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), bill.ID))

	got := f.reload(t, bill.ID)
	assert.Equal(t, billdomain.StatusPending, got.VerificationStatus)
	assert.Equal(t, billdomain.MethodManual, got.VerificationMethod)
	assert.Zero(t, got.CashbackAmount)
}

func TestProcessBillRejectsFraudulent(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)
	f.fraud.result = frauddomain.Result{
		FraudScore:   85,
		IsFraudulent: true,
		Flags:        []string{frauddomain.FlagDuplicateImage},
	}

	bill := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), bill.ID))

	got := f.reload(t, bill.ID)
	assert.Equal(t, billdomain.StatusRejected, got.VerificationStatus)
	assert.Equal(t, billdomain.MethodAutomatic, got.VerificationMethod)
	assert.Contains(t, got.RejectionReason, "High fraud risk")
	assert.Equal(t, 85, got.FraudScore)
}

func TestProcessBillPersistsExtraction(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)

	bill := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), bill.ID))

	got := f.reload(t, bill.ID)
	assert.Equal(t, 0.95, got.OCRConfidence)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(got.ExtractedData, &envelope))
	assert.Equal(t, true, envelope["success"])
}

func TestProcessBillMissing(t *testing.T) {
	f := setup(t)
	err := f.svc.ProcessBill(context.Background(), f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrBillNotFound)
}

func TestProcessBillMerchantLookupErrorGoesToReview(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)

	// Inserted directly so the merchant is not cached; dropping the
	// table then makes the lookup error instead of finding nothing.
	bill := &billdomain.Bill{
		ID:                 f.node.Generate(),
		UserID:             f.node.Generate(),
		MerchantID:         f.merchant.ID,
		ImageURL:           "/images/x.jpg",
		ImageHash:          "h",
		Amount:             1200,
		BillDate:           billDate,
		VerificationStatus: billdomain.StatusPending,
		CashbackStatus:     billdomain.CashbackPending,
		IsActive:           true,
		CreatedAt:          f.clock.Now(),
		UpdatedAt:          f.clock.Now(),
	}
	require.NoError(t, f.db.Create(bill).Error)
	require.NoError(t, f.db.Exec("DROP TABLE merchants").Error)

	require.NoError(t, f.svc.ProcessBill(context.Background(), bill.ID))

	got := f.reload(t, bill.ID)
	assert.Equal(t, billdomain.StatusPending, got.VerificationStatus)
	assert.Equal(t, billdomain.MethodManual, got.VerificationMethod)
	assert.Empty(t, got.RejectionReason)
}

func TestProcessBillRunsExactlyOnce(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)
	f.extractor.delay = 20 * time.Millisecond

	bill := f.submit(t, f.node.Generate(), 1200, billDate)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.svc.ProcessBill(context.Background(), bill.ID)
		}()
	}
	wg.Wait()

	// Only one run may claim the pending bill.
	assert.Equal(t, int32(1), f.extractor.calls.Load())
	got := f.reload(t, bill.ID)
	assert.Equal(t, billdomain.StatusApproved, got.VerificationStatus)
}

func TestResubmitRejectedBill(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)
	f.fraud.result = frauddomain.Result{FraudScore: 85, Flags: []string{frauddomain.FlagDuplicateBill}}

	bill := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), bill.ID))
	rejected := f.reload(t, bill.ID)
	require.Equal(t, billdomain.StatusRejected, rejected.VerificationStatus)

	got, err := f.svc.Resubmit(context.Background(), bill.ID, bill.UserID,
		strings.NewReader("better photo"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, billdomain.StatusPending, got.VerificationStatus)
	assert.Equal(t, 1, got.ResubmissionCount)
	assert.Empty(t, got.RejectionReason)
	assert.Zero(t, got.FraudScore)
	assert.NotEqual(t, rejected.ImageHash, got.ImageHash)

	var history []billdomain.ResubmissionAttempt
	require.NoError(t, json.Unmarshal(got.ResubmissionHistory, &history))
	require.Len(t, history, 1)
	assert.Equal(t, rejected.ImageURL, history[0].ImageURL)
	assert.Contains(t, history[0].RejectionReason, "High fraud risk")
	assert.Contains(t, f.store.deleted, rejected.StorageID)
}

func TestResubmitEnforcesLimit(t *testing.T) {
	f := setup(t)
	bill := f.submit(t, f.node.Generate(), 1200, f.clock.Now().Add(-48*time.Hour))
	require.NoError(t, f.db.Model(&billdomain.Bill{}).Where("id = ?", bill.ID).
		Updates(map[string]any{
			"verification_status": billdomain.StatusRejected,
			"resubmission_count":  3,
		}).Error)

	_, err := f.svc.Resubmit(context.Background(), bill.ID, bill.UserID,
		strings.NewReader("x"), "image/jpeg")
	assert.ErrorIs(t, err, domain.ErrResubmissionLimit)
}

func TestResubmitRequiresRejectedState(t *testing.T) {
	f := setup(t)
	bill := f.submit(t, f.node.Generate(), 1200, f.clock.Now().Add(-48*time.Hour))

	_, err := f.svc.Resubmit(context.Background(), bill.ID, bill.UserID,
		strings.NewReader("x"), "image/jpeg")
	assert.ErrorIs(t, err, domain.ErrNotRejected)
}

func TestResubmitRequiresOwnership(t *testing.T) {
	f := setup(t)
	bill := f.submit(t, f.node.Generate(), 1200, f.clock.Now().Add(-48*time.Hour))
	require.NoError(t, f.db.Model(&billdomain.Bill{}).Where("id = ?", bill.ID).
		Update("verification_status", billdomain.StatusRejected).Error)

	_, err := f.svc.Resubmit(context.Background(), bill.ID, f.node.Generate(),
		strings.NewReader("x"), "image/jpeg")
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}

func TestManualApprove(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.extractor.result = ocr.Result{Success: false, Err: "unreadable"}

	bill := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), bill.ID))
	require.Equal(t, billdomain.StatusPending, f.reload(t, bill.ID).VerificationStatus)

	reviewer := f.node.Generate()
	got, err := f.svc.ManualApprove(context.Background(), bill.ID, reviewer, "verified by phone")
	require.NoError(t, err)

	assert.Equal(t, billdomain.StatusApproved, got.VerificationStatus)
	assert.Equal(t, billdomain.MethodManual, got.VerificationMethod)
	assert.Equal(t, 60.0, got.CashbackAmount)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, reviewer, *got.ReviewedBy)
}

func TestManualApproveAlreadyApproved(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)

	bill := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), bill.ID))
	require.Equal(t, billdomain.StatusApproved, f.reload(t, bill.ID).VerificationStatus)

	_, err := f.svc.ManualApprove(context.Background(), bill.ID, f.node.Generate(), "")
	assert.ErrorIs(t, err, domain.ErrAlreadyApproved)
}

func TestManualApproveOverridesAutoRejection(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)
	f.fraud.result = frauddomain.Result{
		FraudScore: 85,
		Flags:      []string{frauddomain.FlagDuplicateBill},
	}

	bill := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), bill.ID))
	require.Equal(t, billdomain.StatusRejected, f.reload(t, bill.ID).VerificationStatus)

	got, err := f.svc.ManualApprove(context.Background(), bill.ID, f.node.Generate(), "receipt verified with merchant")
	require.NoError(t, err)

	assert.Equal(t, billdomain.StatusApproved, got.VerificationStatus)
	assert.Equal(t, billdomain.MethodManual, got.VerificationMethod)
	assert.Empty(t, got.RejectionReason)
	assert.Equal(t, 60.0, got.CashbackAmount)
}

func TestManualRejectOverridesApproval(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)

	bill := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), bill.ID))
	require.Equal(t, billdomain.StatusApproved, f.reload(t, bill.ID).VerificationStatus)

	got, err := f.svc.ManualReject(context.Background(), bill.ID, f.node.Generate(), "receipt belongs to another store")
	require.NoError(t, err)

	assert.Equal(t, billdomain.StatusRejected, got.VerificationStatus)
	assert.Equal(t, "receipt belongs to another store", got.RejectionReason)
	assert.Zero(t, got.CashbackAmount)
}

func TestManualRejectAlreadyRejected(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)
	f.fraud.result = frauddomain.Result{
		FraudScore: 85,
		Flags:      []string{frauddomain.FlagDuplicateBill},
	}

	bill := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), bill.ID))

	_, err := f.svc.ManualReject(context.Background(), bill.ID, f.node.Generate(), "still bad")
	assert.ErrorIs(t, err, domain.ErrAlreadyRejected)
}

func TestManualRejectRequiresReason(t *testing.T) {
	f := setup(t)
	bill := f.submit(t, f.node.Generate(), 1200, f.clock.Now().Add(-48*time.Hour))

	_, err := f.svc.ManualReject(context.Background(), bill.ID, f.node.Generate(), "")
	assert.ErrorIs(t, err, domain.ErrRejectionReasonRequired)
}

func TestManualReject(t *testing.T) {
	f := setup(t)
	bill := f.submit(t, f.node.Generate(), 1200, f.clock.Now().Add(-48*time.Hour))

	got, err := f.svc.ManualReject(context.Background(), bill.ID, f.node.Generate(), "image unreadable")
	require.NoError(t, err)

	assert.Equal(t, billdomain.StatusRejected, got.VerificationStatus)
	assert.Equal(t, billdomain.MethodManual, got.VerificationMethod)
	assert.Equal(t, "image unreadable", got.RejectionReason)
}

func TestPendingReviewLists(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.extractor.result = ocr.Result{Success: false, Err: "unreadable"}

	first := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), first.ID))
	second := f.submit(t, f.node.Generate(), 900, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), second.ID))

	bills, err := f.svc.PendingReview(context.Background(), pagination.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, bills, 2)
}

func TestStatistics(t *testing.T) {
	f := setup(t)
	billDate := f.clock.Now().Add(-48 * time.Hour)
	f.cleanOCR(1200, billDate)

	approved := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), approved.ID))

	f.fraud.result = frauddomain.Result{FraudScore: 85, Flags: []string{frauddomain.FlagDuplicateBill}}
	rejected := f.submit(t, f.node.Generate(), 1200, billDate)
	require.NoError(t, f.svc.ProcessBill(context.Background(), rejected.ID))

	stats, err := f.svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalBills)
	assert.Equal(t, int64(1), stats.AutoApproved)
	assert.Equal(t, int64(1), stats.AutoRejected)
}
