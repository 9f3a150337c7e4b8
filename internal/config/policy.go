package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Policy carries the settlement business rules that operations may tune per
// deployment without a rebuild. Every value has a documented default; the
// defaults are the contract, the file is the override.
type Policy struct {
	// DefaultReturnDays applies when a listing has no return policy row at all.
	// A row that exists with zero/null return days means non-returnable and is
	// not affected by this default.
	DefaultReturnDays int `mapstructure:"defaultReturnDays"`

	// SettlementDayOfMonth is the calendar day earnings settle on.
	SettlementDayOfMonth int `mapstructure:"settlementDayOfMonth"`

	// NewSellerHoldCount: a seller's first N delivered items settle on the
	// following month's cycle instead of the current one.
	NewSellerHoldCount int `mapstructure:"newSellerHoldCount"`

	// RecentHoldCount: the N most recent valid-fulfilled items are held back
	// one extra cycle so late disputes can still be resolved.
	RecentHoldCount int `mapstructure:"recentHoldCount"`
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultReturnDays:    7,
		SettlementDayOfMonth: 28,
		NewSellerHoldCount:   3,
		RecentHoldCount:      3,
	}
}

// PolicyHolder exposes the current settlement policy and hot-reloads it when
// the backing file changes. Invalid reloads are ignored.
type PolicyHolder struct {
	current atomic.Value // holds Policy
}

func NewPolicyHolder(path string) (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("settlement")
	v.SetConfigType("yml")
	if strings.TrimSpace(path) != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("/etc/settled")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SETTLED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.defaultReturnDays", defaults.DefaultReturnDays)
	v.SetDefault("policy.settlementDayOfMonth", defaults.SettlementDayOfMonth)
	v.SetDefault("policy.newSellerHoldCount", defaults.NewSellerHoldCount)
	v.SetDefault("policy.recentHoldCount", defaults.RecentHoldCount)

	haveFile := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		haveFile = false
	}

	var policy Policy
	if err := v.UnmarshalKey("policy", &policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	if haveFile {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated Policy
			if err := v.UnmarshalKey("policy", &updated); err != nil {
				log.Printf("[settlement-policy] reload failed: %v", err)
				return
			}
			if err := validatePolicy(updated); err != nil {
				log.Printf("[settlement-policy] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[settlement-policy] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

// NewStaticPolicyHolder wraps a fixed policy with no file watching.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

func validatePolicy(p Policy) error {
	if p.DefaultReturnDays < 0 {
		return errors.New("policy.defaultReturnDays cannot be negative")
	}
	if p.SettlementDayOfMonth < 1 || p.SettlementDayOfMonth > 28 {
		return errors.New("policy.settlementDayOfMonth must be between 1 and 28")
	}
	if p.NewSellerHoldCount < 0 {
		return errors.New("policy.newSellerHoldCount cannot be negative")
	}
	if p.RecentHoldCount < 0 {
		return errors.New("policy.recentHoldCount cannot be negative")
	}
	return nil
}
