package hubspot

import (
	"fmt"
	"net/http"
	"strings"
)

const (
	trackingVersion = "1.1"
	formsVersion    = "collected-forms-embed-js-static-1.312"

	chatLoaderID = "hubspot-messages-loader"
)

// FormsAPI selects the endpoint generation used for "form" events.
type FormsAPI string

const (
	FormsAPILegacy      FormsAPI = "v2"
	FormsAPIIntegration FormsAPI = "v3"
)

// Settings is the per-portal configuration the component runs with.
type Settings struct {
	AccountID    string
	RegionPrefix string
	DomainName   string
	FormsAPI     FormsAPI
}

// RegionSuffix returns "-<region>" for a regional portal and "" otherwise.
func RegionSuffix(region string) string {
	if region == "" {
		return ""
	}
	return "-" + region
}

// TrackingRequest builds the pixel request. Pageviews go to __ptq.gif and
// behavioural events to __ptbe.gif.
func TrackingRequest(settings Settings, eventType EventType, params *Params) Request {
	pixel := "__ptbe.gif"
	if eventType == EventPageview {
		pixel = "__ptq.gif"
	}

	return Request{
		Kind:        KindTracking,
		Method:      http.MethodGet,
		URL:         fmt.Sprintf("https://track%s.hubspot.com/%s?%s", RegionSuffix(settings.RegionPrefix), pixel, params.Encode()),
		Mode:        "no-cors",
		Credentials: "include",
		KeepAlive:   true,
		Redirect:    RedirectFollow,
	}
}

// ChatScript returns the inline loader for the conversations widget. The
// output depends only on settings.
func ChatScript(settings Settings) string {
	var hublet string
	if settings.RegionPrefix != "" {
		hublet = fmt.Sprintf(`,"data-hsjs-hublet":"%s"`, settings.RegionPrefix)
	}

	var sb strings.Builder
	sb.WriteString(`!function(t,e,r){if(!document.getElementById(t)){var n=document.createElement("script");for(var a in n.src="https://js`)
	sb.WriteString(RegionSuffix(settings.RegionPrefix))
	sb.WriteString(`.usemessages.com/conversations-embed.js",n.type="text/javascript",n.id=t,r)r.hasOwnProperty(a)&&n.setAttribute(a,r[a]);var i=document.getElementsByTagName("script")[0];i.parentNode.insertBefore(n,i)}}("`)
	sb.WriteString(chatLoaderID)
	sb.WriteString(`",0,{"data-loader":"hs-scriptloader","data-hsjs-portal":`)
	sb.WriteString(settings.AccountID)
	sb.WriteString(`,"data-hsjs-env":"prod"`)
	sb.WriteString(hublet)
	sb.WriteString(`});`)
	return sb.String()
}
