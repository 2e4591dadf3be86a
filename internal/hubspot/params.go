package hubspot

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Params is an insertion-ordered set of query parameters. Setting a key that
// already exists replaces its value but keeps its original position.
type Params struct {
	keys   []string
	values map[string]string
}

func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

func (p *Params) Set(key, value string) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p *Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p *Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *Params) Len() int {
	return len(p.keys)
}

// Encode serializes the parameters as application/x-www-form-urlencoded in
// insertion order.
func (p *Params) Encode() string {
	var sb strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(formEscape(k))
		sb.WriteByte('=')
		sb.WriteString(formEscape(p.values[k]))
	}
	return sb.String()
}

// formEscape matches the browser form encoder: '*' stays literal and '~' is
// percent-encoded, otherwise identical to url.QueryEscape.
func formEscape(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "~", "%7E")
	return strings.ReplaceAll(escaped, "%2A", "*")
}

// Keys removed from the payload before it is passed through to the pixel.
var trackingReservedKeys = []string{
	"identifyEmail",
	"identifyUserId",
	"n",
	"property_name",
	"property_value",
}

// BuildTrackingParams assembles the tracking pixel query for a pageview or
// custom event. Insertion order follows the native script:
//
//	k v a pu t cts [_prop] [n] [i] [r] [sd] ln <payload...> vi nc u b
func BuildTrackingParams(settings Settings, event Event, state State, now time.Time) *Params {
	payload := event.Payload
	client := event.Context

	params := NewParams()
	if event.Type == EventPageview {
		params.Set("k", "1")
	} else {
		params.Set("k", "3")
	}
	params.Set("v", trackingVersion)
	params.Set("a", settings.AccountID)
	params.Set("pu", client.URL)
	params.Set("t", client.Title)
	params.Set("cts", formatMillis(now))

	if event.Type == EventCustom {
		if name := payload.Get("property_name"); name != "" {
			params.Set("_"+name, payload.Get("property_value"))
		}
		if n := payload.Get("n"); n != "" {
			params.Set("n", n)
		}
	}

	if identify := identifyParam(payload); identify != "" {
		params.Set("i", identify)
	}
	if client.Referrer != "" {
		params.Set("r", client.Referrer)
	}
	if client.ScreenWidth > 0 && client.ScreenHeight > 0 {
		params.Set("sd", strconv.Itoa(client.ScreenWidth)+"x"+strconv.Itoa(client.ScreenHeight))
	}
	params.Set("ln", client.Language)

	for _, f := range payload.Without(trackingReservedKeys...).Fields() {
		params.Set(f.Key, f.Value)
	}

	params.Set("vi", state.VisitorID)
	params.Set("nc", strconv.FormatBool(state.IsNewVisitor))
	params.Set("u", state.HSTC)
	params.Set("b", state.HSSC)

	return params
}

func identifyParam(payload Payload) string {
	identity := NewParams()
	if email := payload.Get("identifyEmail"); email != "" {
		identity.Set("email", email)
	}
	if id := payload.Get("identifyUserId"); id != "" {
		identity.Set("id", id)
	}
	if identity.Len() == 0 {
		return ""
	}
	return identity.Encode()
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
