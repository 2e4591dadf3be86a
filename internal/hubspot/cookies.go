package hubspot

import (
	"math"
	"strconv"
	"strings"
	"time"

	"hsrelay/internal/visitors"
)

// Cookie names used by the HubSpot tracking script.
const (
	VisitorCookie = "hubspotutk"
	SessionCookie = "hssrc"
	TimingCookie  = "hstc"
	CountCookie   = "hssc"
)

// CookieWrite is a cookie the host must store after the event.
type CookieWrite struct {
	Name  string
	Value string
	Scope CookieScope
}

// State is the cookie-derived tracking state for one event.
type State struct {
	VisitorID    string
	IsNewVisitor bool
	IsNewSession bool
	HSTC         string
	HSSC         string
	Writes       []CookieWrite
}

// DeriveState reads the current cookies and computes the visitor, session
// timing and session count values for an event at now. Existing values are
// never validated: short cookies are padded with empty fields and counters
// that do not parse become NaN.
func DeriveState(now time.Time, cookies CookieReader, domainHash int32) State {
	var st State
	ts := formatMillis(now)
	hash := strconv.FormatInt(int64(domainHash), 10)

	if vi, ok := readCookie(cookies, VisitorCookie); ok {
		st.VisitorID = vi
	} else {
		st.VisitorID = visitors.NewID()
		st.IsNewVisitor = true
		st.write(VisitorCookie, st.VisitorID, ScopeInfinite)
	}

	if _, ok := readCookie(cookies, SessionCookie); !ok {
		st.IsNewSession = true
		st.write(SessionCookie, "1", ScopeSession)
	}

	switch hstc, ok := readCookie(cookies, TimingCookie); {
	case !ok:
		st.HSTC = strings.Join([]string{hash, st.VisitorID, ts, ts, ts, "1"}, ".")
		st.write(TimingCookie, st.HSTC, ScopeInfinite)
	case st.IsNewSession:
		st.HSTC = rotateSessionTiming(hstc, ts)
		st.write(TimingCookie, st.HSTC, ScopeDefault)
	default:
		st.HSTC = hstc
	}

	if hssc, ok := readCookie(cookies, CountCookie); ok {
		st.HSSC = incrementPageCounter(hssc)
	} else {
		st.HSSC = strings.Join([]string{hash, "1", ts}, ".")
	}
	st.write(CountCookie, st.HSSC, ScopeSession)

	return st
}

func (st *State) write(name, value string, scope CookieScope) {
	st.Writes = append(st.Writes, CookieWrite{Name: name, Value: value, Scope: scope})
}

func readCookie(cookies CookieReader, name string) (string, bool) {
	if cookies == nil {
		return "", false
	}
	v, ok := cookies.Get(name)
	return v, ok && v != ""
}

// rotateSessionTiming moves the current session time (field 4) into the
// previous session slot (field 3) and stamps field 4 with ts.
func rotateSessionTiming(hstc, ts string) string {
	fields := padFields(strings.Split(hstc, "."), 5)
	fields[3] = fields[4]
	fields[4] = ts
	return strings.Join(fields, ".")
}

func incrementPageCounter(hssc string) string {
	fields := padFields(strings.Split(hssc, "."), 2)
	fields[1] = formatNumber(parseLeadingInt(fields[1]) + 1)
	return strings.Join(fields, ".")
}

func padFields(fields []string, n int) []string {
	for len(fields) < n {
		fields = append(fields, "")
	}
	return fields
}

// parseLeadingInt reads the integer prefix of a cookie field the way the
// HubSpot tracking script does. Leading whitespace and a sign are accepted and
// a 0x prefix switches to hex. Parsing stops at the first invalid digit; no
// digits at all yields NaN.
func parseLeadingInt(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	sign := 1.0
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}

	base := 10.0
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}

	value := 0.0
	digits := 0
	for _, r := range s {
		d := digitValue(r)
		if d < 0 || float64(d) >= base {
			break
		}
		value = value*base + float64(d)
		digits++
	}
	if digits == 0 {
		return math.NaN()
	}
	return sign * value
}

func digitValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	}
	return -1
}

// formatNumber renders a page counter the way browser-written hssc cookies
// carry it, NaN and Infinity included.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
