package config

import (
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// InvitePolicy controls invitation issuance. It lives in an operator-managed
// file so deployments can tune it without a rebuild.
type InvitePolicy struct {
	TTLHours             int `mapstructure:"ttlHours"`
	MaxOutstandingPerOrg int `mapstructure:"maxOutstandingPerOrg"`
}

func DefaultInvitePolicy() InvitePolicy {
	return InvitePolicy{
		TTLHours:             168, // 7 days
		MaxOutstandingPerOrg: 100,
	}
}

// TTL returns the invitation lifetime as a duration.
func (p InvitePolicy) TTL() time.Duration {
	return time.Duration(p.TTLHours) * time.Hour
}

// InvitePolicyHolder exposes the current policy and hot-reloads it when the
// backing file changes.
type InvitePolicyHolder struct {
	current atomic.Value // holds InvitePolicy
}

func NewInvitePolicyHolder() (*InvitePolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("invites")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/planora/config") // Volume-mounted config
	v.AddConfigPath("/etc/planora")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("PLANORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvitePolicy()
	v.SetDefault("invites.ttlHours", defaults.TTLHours)
	v.SetDefault("invites.maxOutstandingPerOrg", defaults.MaxOutstandingPerOrg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &InvitePolicyHolder{}
	holder.store(readInvitePolicy(v))

	v.OnConfigChange(func(_ fsnotify.Event) {
		holder.store(readInvitePolicy(v))
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticInvitePolicyHolder wraps a fixed policy, used by tests.
func NewStaticInvitePolicyHolder(policy InvitePolicy) *InvitePolicyHolder {
	holder := &InvitePolicyHolder{}
	holder.store(policy)
	return holder
}

// Current returns the active policy.
func (h *InvitePolicyHolder) Current() InvitePolicy {
	if value, ok := h.current.Load().(InvitePolicy); ok {
		return value
	}
	return DefaultInvitePolicy()
}

func (h *InvitePolicyHolder) store(policy InvitePolicy) {
	h.current.Store(policy)
}

func readInvitePolicy(v *viper.Viper) InvitePolicy {
	var policy InvitePolicy
	if err := v.UnmarshalKey("invites", &policy); err != nil {
		log.Printf("invite policy config invalid, keeping defaults: %v", err)
		return DefaultInvitePolicy()
	}
	if policy.TTLHours <= 0 {
		policy.TTLHours = DefaultInvitePolicy().TTLHours
	}
	if policy.MaxOutstandingPerOrg <= 0 {
		policy.MaxOutstandingPerOrg = DefaultInvitePolicy().MaxOutstandingPerOrg
	}
	return policy
}
