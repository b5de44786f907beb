package config

import (
	_ "embed"
	"time"

	"gopkg.in/yaml.v3"
)

// Call sites served by the capture coordinator.
const (
	SiteCheckIn  = "checkin"
	SiteRegister = "register"
	SiteAdmin    = "admin"
)

//go:embed profiles.yaml
var profilesYAML []byte

// Policy is the detection policy of one session: how strict a verdict must
// be to count as a hit, how many hits in a row trigger auto-capture, and the
// loop cadence.
type Policy struct {
	MatchThresholdPercent      float64 `json:"match_threshold_percent,omitempty" yaml:"match_threshold_percent"`
	RequiredConsecutiveMatches int     `json:"required_consecutive_matches,omitempty" yaml:"required_consecutive_matches"`
	ActiveRetryMs              int     `json:"active_retry_ms,omitempty" yaml:"active_retry_ms"`
	IdlePollMs                 int     `json:"idle_poll_ms,omitempty" yaml:"idle_poll_ms"`
}

type profilesFile struct {
	Profiles map[string]Policy `yaml:"profiles"`
}

var profiles = mustLoadProfiles()

func mustLoadProfiles() map[string]Policy {
	var pf profilesFile
	if err := yaml.Unmarshal(profilesYAML, &pf); err != nil {
		// embedded file; only a broken build gets here
		panic("failed to unmarshal embedded profiles.yaml: " + err.Error())
	}
	for name, p := range pf.Profiles {
		p.normalize()
		pf.Profiles[name] = p
	}
	return pf.Profiles
}

// DefaultPolicy returns the baseline policy: 70% threshold, two consecutive
// hits, 200ms busy retry and 500ms idle poll.
func DefaultPolicy() Policy {
	return Policy{
		MatchThresholdPercent:      70,
		RequiredConsecutiveMatches: 2,
		ActiveRetryMs:              200,
		IdlePollMs:                 500,
	}
}

// ProfilePolicy returns the embedded policy for site, or DefaultPolicy when
// the site is unknown.
func ProfilePolicy(site string) Policy {
	if p, ok := profiles[site]; ok {
		return p
	}
	return DefaultPolicy()
}

// Sites lists the call sites that have an embedded profile.
func Sites() []string {
	return []string{SiteCheckIn, SiteRegister, SiteAdmin}
}

func (p *Policy) normalize() {
	d := DefaultPolicy()
	if p.MatchThresholdPercent <= 0 || p.MatchThresholdPercent > 100 {
		p.MatchThresholdPercent = d.MatchThresholdPercent
	}
	if p.RequiredConsecutiveMatches <= 0 {
		p.RequiredConsecutiveMatches = d.RequiredConsecutiveMatches
	}
	if p.ActiveRetryMs <= 0 {
		p.ActiveRetryMs = d.ActiveRetryMs
	}
	if p.IdlePollMs <= 0 {
		p.IdlePollMs = d.IdlePollMs
	}
}

// ActiveRetry is the delay used while a call is in flight or no frame is ready.
func (p Policy) ActiveRetry() time.Duration { return time.Duration(p.ActiveRetryMs) * time.Millisecond }

// IdlePoll is the delay between two completed verification calls.
func (p Policy) IdlePoll() time.Duration { return time.Duration(p.IdlePollMs) * time.Millisecond }

// Normalized returns p with unset or out-of-range fields replaced by the
// defaults.
func (p Policy) Normalized() Policy {
	p.normalize()
	return p
}
