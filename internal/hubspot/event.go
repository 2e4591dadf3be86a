// Package hubspot reproduces the HubSpot browser tracking script on the server:
// cookie derivation, the domain hash, and construction of the tracking, chat
// and form requests.
package hubspot

import "fmt"

// EventType identifies the kind of inbound event.
type EventType string

const (
	EventPageview      EventType = "pageview"
	EventCustom        EventType = "event"
	EventChat          EventType = "chat"
	EventForm          EventType = "form"
	EventCollectedForm EventType = "collected-form"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventPageview, EventCustom, EventChat, EventForm, EventCollectedForm:
		return true
	}
	return false
}

// ClientContext is the read-only snapshot of the page and browser that
// produced an event.
type ClientContext struct {
	URL          string
	Title        string
	Referrer     string
	UserAgent    string
	Language     string
	IP           string
	ScreenWidth  int
	ScreenHeight int
}

// Event is one inbound call. It is never persisted.
type Event struct {
	Type    EventType
	Payload Payload
	Context ClientContext
	Client  Client
}

// UnknownEventTypeError is returned when an event type has no handler.
type UnknownEventTypeError struct {
	Type EventType
}

func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("unknown event type: %q", string(e.Type))
}
