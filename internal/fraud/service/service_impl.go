package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/rupeeback/verify/internal/bill/domain"
	"github.com/rupeeback/verify/internal/clock"
	"github.com/rupeeback/verify/internal/config"
	"github.com/rupeeback/verify/internal/fraud/domain"
	obsmetrics "github.com/rupeeback/verify/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Bills   billdomain.Repository
	Policy  *config.PolicyHolder
	Metrics *obsmetrics.PipelineMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	bills   billdomain.Repository
	policy  *config.PolicyHolder
	metrics *obsmetrics.PipelineMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("fraud.service"),
		clock:   p.Clock,
		bills:   p.Bills,
		policy:  p.Policy,
		metrics: p.Metrics,
	}
}

// checkOutcome is what a single heuristic contributes to the aggregate.
type checkOutcome struct {
	score   int
	flag    string
	warning string
}

type check struct {
	name string
	run  func(ctx context.Context, sub domain.Submission, now time.Time) (checkOutcome, error)
}

func (s *Service) Score(ctx context.Context, sub domain.Submission) domain.Result {
	now := s.clock.Now()
	checks := []check{
		{"duplicate_bill", s.checkDuplicateBill},
		{"duplicate_bill_number", s.checkDuplicateBillNumber},
		{"duplicate_image", s.checkDuplicateImage},
		{"upload_frequency", s.checkUploadFrequency},
		{"daily_volume", s.checkDailyVolume},
		{"amount_heuristics", s.checkAmountHeuristics},
		{"amount_vs_average", s.checkAmountVsAverage},
		{"bill_date", s.checkBillDate},
		{"merchant_velocity", s.checkMerchantVelocity},
	}

	var (
		mu       sync.Mutex
		total    int
		flags    []string
		warnings []string
		wg       sync.WaitGroup
	)

	timeout := time.Duration(s.policy.Current().CheckTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	for _, c := range checks {
		wg.Add(1)
		go func(c check) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			out, err := c.run(checkCtx, sub, now)
			if err != nil {
				// Fail closed: an unscored check contributes zero and the
				// submission still routes through the decision policy.
				s.log.Warn("fraud check failed",
					zap.String("check", c.name),
					zap.Int64("bill_id", int64(sub.BillID)),
					zap.Error(err))
				s.metrics.CheckError(c.name)
				return
			}

			mu.Lock()
			total += out.score
			if out.flag != "" {
				flags = append(flags, out.flag)
			}
			if out.warning != "" {
				warnings = append(warnings, out.warning)
			}
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	sort.Strings(flags)
	sort.Strings(warnings)

	s.metrics.ObserveFraudScore(total)

	return domain.Result{
		FraudScore:   total,
		IsFraudulent: total > domain.FraudulentThreshold,
		Flags:        flags,
		Warnings:     warnings,
	}
}

func (s *Service) UserHistory(ctx context.Context, userID snowflake.ID) (domain.History, error) {
	bills, err := s.bills.RecentBills(ctx, s.db, userID, 50)
	if err != nil {
		return domain.History{}, err
	}

	var history domain.History
	var scoreSum int
	for _, b := range bills {
		if b.FraudScore > 50 {
			history.TotalFlagged++
		}
		if b.VerificationStatus == billdomain.StatusRejected {
			history.TotalRejected++
		}
		scoreSum += b.FraudScore
	}
	if len(bills) > 0 {
		history.AvgFraudScore = float64(scoreSum) / float64(len(bills))
	}

	seen := map[string]bool{}
	for i, b := range bills {
		if i >= 10 {
			break
		}
		var flags []string
		if len(b.FraudFlags) > 0 {
			if err := json.Unmarshal(b.FraudFlags, &flags); err != nil {
				continue
			}
		}
		for _, f := range flags {
			if !seen[f] {
				seen[f] = true
				history.RecentFlags = append(history.RecentFlags, f)
			}
		}
	}
	sort.Strings(history.RecentFlags)

	return history, nil
}

func (s *Service) CrossUserDuplicate(ctx context.Context, billNumber string, merchantID, excludeUserID snowflake.ID) ([]domain.CrossUserMatch, error) {
	if billNumber == "" {
		return nil, nil
	}
	bills, err := s.bills.FindCrossUserBillNumber(ctx, s.db, billNumber, merchantID, excludeUserID)
	if err != nil {
		return nil, err
	}
	matches := make([]domain.CrossUserMatch, 0, len(bills))
	for _, b := range bills {
		matches = append(matches, domain.CrossUserMatch{
			BillID:    b.ID,
			UserID:    b.UserID,
			Status:    string(b.VerificationStatus),
			CreatedAt: b.CreatedAt,
		})
	}
	return matches, nil
}
