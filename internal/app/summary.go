package app

import (
	"strconv"
	"strings"
	"time"

	"arena/internal/logger"
)

// StartupSummary is printed once at boot so the operator can verify the
// wiring at a glance.
type StartupSummary struct {
	Model       string
	Interval    time.Duration
	MaxCycles   int
	HTTPAddr    string
	Tools       []string
	SearchReady bool
	Notify      bool
	PersonaName string
}

func (s *StartupSummary) Print() {
	if s == nil {
		return
	}
	logger.Infof("model: %s", s.Model)
	logger.Infof("cycle interval: %s, max cycles: %s", s.Interval, cyclesLabel(s.MaxCycles))
	if s.HTTPAddr != "" {
		logger.Infof("status http: %s", s.HTTPAddr)
	}
	logger.Infof("tools (%d): %s", len(s.Tools), strings.Join(s.Tools, ", "))
	logger.Infof("web search: %s", enabledLabel(s.SearchReady))
	logger.Infof("telegram notify: %s", enabledLabel(s.Notify))
	if s.PersonaName != "" {
		logger.Infof("persona: %s", s.PersonaName)
	}
}

func cyclesLabel(n int) string {
	if n <= 0 {
		return "unbounded"
	}
	return strconv.Itoa(n)
}

func enabledLabel(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
