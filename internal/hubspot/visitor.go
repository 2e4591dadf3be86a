package hubspot

import (
	"math"
	"strings"
	"time"
)

// VisitorInfo is a read-only view of the tracking cookies. Timestamps and
// counters that do not parse are left zero.
type VisitorInfo struct {
	VisitorID       string     `json:"visitorId,omitempty"`
	Known           bool       `json:"known"`
	SessionActive   bool       `json:"sessionActive"`
	FirstVisit      *time.Time `json:"firstVisit,omitempty"`
	PreviousSession *time.Time `json:"previousSession,omitempty"`
	CurrentSession  *time.Time `json:"currentSession,omitempty"`
	SessionCount    int64      `json:"sessionCount"`
	PageViews       int64      `json:"pageViews"`
}

// DescribeVisitor decodes the cookies written by DeriveState without
// changing them.
func DescribeVisitor(cookies CookieReader) VisitorInfo {
	var info VisitorInfo

	if vi, ok := readCookie(cookies, VisitorCookie); ok {
		info.VisitorID = vi
		info.Known = true
	}
	_, info.SessionActive = readCookie(cookies, SessionCookie)

	if hstc, ok := readCookie(cookies, TimingCookie); ok {
		fields := padFields(strings.Split(hstc, "."), 6)
		info.FirstVisit = parseMillis(fields[2])
		info.PreviousSession = parseMillis(fields[3])
		info.CurrentSession = parseMillis(fields[4])
		info.SessionCount = parseCount(fields[5])
	}

	if hssc, ok := readCookie(cookies, CountCookie); ok {
		fields := padFields(strings.Split(hssc, "."), 2)
		info.PageViews = parseCount(fields[1])
	}

	return info
}

func parseMillis(s string) *time.Time {
	ms := parseCount(s)
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func parseCount(s string) int64 {
	f := parseLeadingInt(s)
	if math.IsNaN(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}
