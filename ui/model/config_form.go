package model

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/soocke/facegate-go/config"
)

// FormField is one editable config value.
type FormField struct {
	ID    string
	Label string
	Value string
}

// ConfigForm maps the kiosk settings panel onto a config.Config. Policy
// fields edit the overrides of a single call site.
type ConfigForm struct {
	Site string
}

// Fields returns the panel rows populated from cfg.
func (f ConfigForm) Fields(cfg *config.Config) []FormField {
	p := cfg.Policy(f.Site)
	return []FormField{
		{ID: "threshold", Label: "Match threshold (%)", Value: fmt.Sprintf("%.1f", p.MatchThresholdPercent)},
		{ID: "matches", Label: "Consecutive matches", Value: strconv.Itoa(p.RequiredConsecutiveMatches)},
		{ID: "activeRetry", Label: "Retry delay (ms)", Value: strconv.Itoa(p.ActiveRetryMs)},
		{ID: "idlePoll", Label: "Poll interval (ms)", Value: strconv.Itoa(p.IdlePollMs)},
		{ID: "previewFPS", Label: "Preview FPS", Value: strconv.Itoa(cfg.PreviewFPS)},
	}
}

// Apply parses values into a copy of cfg. Unparseable fields keep their
// previous value; the result is validated before it is returned.
func (f ConfigForm) Apply(cfg *config.Config, values map[string]string) *config.Config {
	next := *cfg
	next.Policies = maps.Clone(cfg.Policies)
	if next.Policies == nil {
		next.Policies = make(map[string]config.Policy)
	}
	p := next.Policies[f.Site]
	if v, ok := parseFloatField(values["threshold"]); ok {
		p.MatchThresholdPercent = v
	}
	if v, ok := parseIntField(values["matches"]); ok {
		p.RequiredConsecutiveMatches = v
	}
	if v, ok := parseIntField(values["activeRetry"]); ok {
		p.ActiveRetryMs = v
	}
	if v, ok := parseIntField(values["idlePoll"]); ok {
		p.IdlePollMs = v
	}
	next.Policies[f.Site] = p
	if v, ok := parseIntField(values["previewFPS"]); ok {
		next.PreviewFPS = v
	}
	_ = next.Validate()
	return &next
}

func parseFloatField(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseIntField(s string) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return i, true
}
