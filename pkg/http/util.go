package http

import (
	"time"

	xutil "RiskScore/pkg/util"
)

// ParseTimeDefault parses RFC3339 or unix seconds/millis, or returns def.
func ParseTimeDefault(s string, def time.Time) time.Time { return xutil.ParseTimeDefault(s, def) }
