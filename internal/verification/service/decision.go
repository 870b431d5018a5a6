package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/rupeeback/verify/internal/config"
	frauddomain "github.com/rupeeback/verify/internal/fraud/domain"
	"github.com/rupeeback/verify/internal/ocr"
)

// Outcome is the terminal routing of one pipeline run.
type Outcome int

const (
	OutcomeApprove Outcome = iota
	OutcomeReject
	OutcomeManualReview
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApprove:
		return "approve"
	case OutcomeReject:
		return "reject"
	default:
		return "manual_review"
	}
}

// Decision is the policy verdict plus the reasons behind it.
type Decision struct {
	Outcome         Outcome
	RejectionReason string
	Warnings        []string
}

// DecisionInput gathers everything the policy looks at. It carries no
// handles to storage, so the policy stays a pure function.
type DecisionInput struct {
	OCR   ocr.Result
	Fraud frauddomain.Result

	ClaimedAmount   float64
	ClaimedDate     time.Time
	ClaimedMerchant string

	// MerchantLookupFailed marks a lookup that errored rather than one
	// that found nothing; the two must not share an outcome.
	MerchantLookupFailed bool
	MerchantFound        bool
	MerchantActive       bool

	Now time.Time
}

// Decide maps a pipeline run to approve, reject, or manual review.
//
// Hard rejects come first: fraudulent score, stale bill, missing or
// inactive merchant. Automatic approval requires a clean run on every
// axis. Everything in between lands in the manual review queue.
func Decide(in DecisionInput, policy config.VerificationPolicy) Decision {
	if in.Fraud.FraudScore > policy.FraudRejectThreshold {
		reason := "High fraud risk"
		if len(in.Fraud.Flags) > 0 {
			reason = fmt.Sprintf("High fraud risk: %s", strings.Join(in.Fraud.Flags, ", "))
		}
		return Decision{Outcome: OutcomeReject, RejectionReason: reason}
	}

	if age := in.Now.Sub(in.ClaimedDate); age > time.Duration(policy.MaxBillAgeDays)*24*time.Hour {
		return Decision{
			Outcome:         OutcomeReject,
			RejectionReason: fmt.Sprintf("Bill is older than %d days", policy.MaxBillAgeDays),
		}
	}

	// A lookup error is not evidence of a missing merchant, so it never
	// rejects; the bill falls through to manual review instead.
	if !in.MerchantLookupFailed {
		if !in.MerchantFound {
			return Decision{Outcome: OutcomeReject, RejectionReason: "Merchant is not a cashback partner"}
		}
		if !in.MerchantActive {
			return Decision{Outcome: OutcomeReject, RejectionReason: "Merchant is no longer active"}
		}
	}

	warnings := append([]string(nil), in.Fraud.Warnings...)
	if in.MerchantLookupFailed {
		warnings = append(warnings, "merchant could not be verified")
	}
	if in.OCR.Success {
		warnings = append(warnings, ocr.Validate(in.OCR.Data, ocr.Claim{
			Amount:       in.ClaimedAmount,
			BillDate:     in.ClaimedDate,
			MerchantName: in.ClaimedMerchant,
		})...)
	} else {
		warnings = append(warnings, "receipt text could not be extracted")
	}

	if canAutoApprove(in, warnings, policy) {
		return Decision{Outcome: OutcomeApprove}
	}
	return Decision{Outcome: OutcomeManualReview, Warnings: warnings}
}

func canAutoApprove(in DecisionInput, warnings []string, policy config.VerificationPolicy) bool {
	if !in.OCR.Success || in.OCR.Confidence < policy.AutoApproveMinConfidence {
		return false
	}
	if !ocr.AmountMatches(in.OCR.Data, in.ClaimedAmount, policy.AmountTolerancePercent) {
		return false
	}
	if !ocr.DateMatches(in.OCR.Data, in.ClaimedDate, policy.DateToleranceDays) {
		return false
	}
	if in.Fraud.FraudScore >= policy.AutoApproveMaxFraudScore {
		return false
	}
	if len(in.Fraud.Flags) > 0 || len(warnings) > 0 {
		return false
	}
	if in.ClaimedAmount < policy.MinAutoApproveAmount || in.ClaimedAmount > policy.MaxAutoApproveAmount {
		return false
	}
	return true
}
