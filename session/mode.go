package session

import (
	"fmt"
	"strings"
	"time"

	"promptarch/llm"
)

// Mode selects how deep a refinement goes
type Mode string

const (
	ModeFast Mode = "fast"
	ModePlan Mode = "plan"
)

// Profile is the sampling and latency profile of a mode
type Profile struct {
	Options  llm.Options
	Estimate time.Duration
	// Note is the instruction given to the model about analysis depth
	Note string
}

// ParseMode accepts a mode name case-insensitively
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFast:
		return ModeFast, nil
	case ModePlan:
		return ModePlan, nil
	default:
		return "", fmt.Errorf("unknown mode %q (valid: %s, %s)", s, ModeFast, ModePlan)
	}
}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeFast || m == ModePlan
}

// ProfileFor returns the profile of m. Unknown modes get the fast profile.
func ProfileFor(m Mode) Profile {
	if m == ModePlan {
		return Profile{
			Options: llm.Options{
				Temperature: llm.Float(0.4),
				TopP:        llm.Float(0.95),
				NumPredict:  llm.Int(2000),
			},
			Estimate: 45 * time.Second,
			Note:     "Run an in-depth analysis and produce a detailed prompt.",
		}
	}
	return Profile{
		Options: llm.Options{
			Temperature: llm.Float(0.4),
			TopP:        llm.Float(0.9),
			NumPredict:  llm.Int(1000),
		},
		Estimate: 15 * time.Second,
		Note:     "Run a quick analysis and produce a concise prompt.",
	}
}
