package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// VerificationPolicy holds the tunable thresholds of the decision policy.
// Loaded from verification.yml and hot-reloaded on change.
type VerificationPolicy struct {
	FraudRejectThreshold     int     `mapstructure:"fraudRejectThreshold"`
	AutoApproveMaxFraudScore int     `mapstructure:"autoApproveMaxFraudScore"`
	AutoApproveMinConfidence float64 `mapstructure:"autoApproveMinConfidence"`
	AmountTolerancePercent   float64 `mapstructure:"amountTolerancePercent"`
	DateToleranceDays        int     `mapstructure:"dateToleranceDays"`
	MinAutoApproveAmount     float64 `mapstructure:"minAutoApproveAmount"`
	MaxAutoApproveAmount     float64 `mapstructure:"maxAutoApproveAmount"`
	MaxBillAgeDays           int     `mapstructure:"maxBillAgeDays"`
	MaxResubmissions         int     `mapstructure:"maxResubmissions"`
	CheckTimeoutSeconds      int     `mapstructure:"checkTimeoutSeconds"`
}

func DefaultVerificationPolicy() VerificationPolicy {
	return VerificationPolicy{
		FraudRejectThreshold:     70,
		AutoApproveMaxFraudScore: 30,
		AutoApproveMinConfidence: 0.90,
		AmountTolerancePercent:   10,
		DateToleranceDays:        7,
		MinAutoApproveAmount:     50,
		MaxAutoApproveAmount:     10000,
		MaxBillAgeDays:           30,
		MaxResubmissions:         3,
		CheckTimeoutSeconds:      3,
	}
}

// PolicyHolder exposes the live policy; reads are lock-free.
type PolicyHolder struct {
	current atomic.Value // holds VerificationPolicy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("verification")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/rupeeback")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RUPEEBACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultVerificationPolicy()
	v.SetDefault("verification.fraudRejectThreshold", defaults.FraudRejectThreshold)
	v.SetDefault("verification.autoApproveMaxFraudScore", defaults.AutoApproveMaxFraudScore)
	v.SetDefault("verification.autoApproveMinConfidence", defaults.AutoApproveMinConfidence)
	v.SetDefault("verification.amountTolerancePercent", defaults.AmountTolerancePercent)
	v.SetDefault("verification.dateToleranceDays", defaults.DateToleranceDays)
	v.SetDefault("verification.minAutoApproveAmount", defaults.MinAutoApproveAmount)
	v.SetDefault("verification.maxAutoApproveAmount", defaults.MaxAutoApproveAmount)
	v.SetDefault("verification.maxBillAgeDays", defaults.MaxBillAgeDays)
	v.SetDefault("verification.maxResubmissions", defaults.MaxResubmissions)
	v.SetDefault("verification.checkTimeoutSeconds", defaults.CheckTimeoutSeconds)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg VerificationPolicy
	if err := v.UnmarshalKey("verification", &cfg); err != nil {
		return nil, err
	}
	if err := validatePolicy(cfg); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated VerificationPolicy
		if err := v.UnmarshalKey("verification", &updated); err != nil {
			log.Printf("[verification-config] reload failed: %v", err)
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Printf("[verification-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[verification-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPolicyHolder wraps a fixed policy, used by tests.
func NewStaticPolicyHolder(p VerificationPolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func (h *PolicyHolder) Current() VerificationPolicy {
	return h.current.Load().(VerificationPolicy)
}

func validatePolicy(p VerificationPolicy) error {
	if p.FraudRejectThreshold <= 0 || p.FraudRejectThreshold > 100 {
		return errors.New("fraudRejectThreshold must be in (0, 100]")
	}
	if p.AutoApproveMaxFraudScore < 0 || p.AutoApproveMaxFraudScore >= p.FraudRejectThreshold {
		return errors.New("autoApproveMaxFraudScore must be below fraudRejectThreshold")
	}
	if p.AutoApproveMinConfidence <= 0 || p.AutoApproveMinConfidence > 1 {
		return errors.New("autoApproveMinConfidence must be in (0, 1]")
	}
	if p.MaxResubmissions < 0 {
		return errors.New("maxResubmissions must not be negative")
	}
	if p.MaxBillAgeDays <= 0 {
		return errors.New("maxBillAgeDays must be positive")
	}
	return nil
}
