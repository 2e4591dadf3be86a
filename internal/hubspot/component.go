package hubspot

import (
	"log/slog"
	"time"

	"hsrelay/internal/visitors"
)

// Component handles inbound events for one HubSpot portal.
type Component struct {
	settings   Settings
	domainHash int32
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Component)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Component) {
		c.now = now
	}
}

func NewComponent(settings Settings, logger *slog.Logger, opts ...Option) *Component {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.FormsAPI == "" {
		settings.FormsAPI = FormsAPIIntegration
	}

	c := &Component{
		settings:   settings,
		domainHash: HashDomain(settings.DomainName),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Component) Settings() Settings {
	return c.settings
}

// Handle routes an event to its handler.
func (c *Component) Handle(event Event) error {
	switch event.Type {
	case EventPageview, EventCustom:
		c.SendEvent(event)
	case EventChat:
		c.HandleChat(event)
	case EventForm:
		c.HandleForm(event)
	case EventCollectedForm:
		c.HandleCollectedForm(event)
	default:
		return &UnknownEventTypeError{Type: event.Type}
	}
	return nil
}

// SendEvent tracks a pageview or custom event: it derives the cookie state,
// stores the cookie writes and fetches the tracking pixel.
func (c *Component) SendEvent(event Event) {
	now := c.now()
	state := DeriveState(now, event.Client, c.domainHash)

	for _, w := range state.Writes {
		event.Client.Set(w.Name, w.Value, w.Scope)
	}

	params := BuildTrackingParams(c.settings, event, state, now)
	event.Client.Fetch(TrackingRequest(c.settings, event.Type, params))

	c.logger.Debug("Tracking request dispatched",
		slog.String("type", string(event.Type)),
		slog.String("visitor", visitors.VisitorAlias(state.VisitorID)),
		slog.Bool("newVisitor", state.IsNewVisitor),
		slog.Bool("newSession", state.IsNewSession))
}

// HandleChat injects the conversations widget loader into the page.
func (c *Component) HandleChat(event Event) {
	event.Client.Execute(ChatScript(c.settings))
	c.logger.Debug("Chat loader dispatched", slog.String("portal", c.settings.AccountID))
}

// HandleCollectedForm submits a scraped form to the collected-forms endpoint.
func (c *Component) HandleCollectedForm(event Event) {
	req, err := CollectedFormRequest(c.settings, event.Payload, event.Context, visitorToken(event.Client))
	if err != nil {
		c.logger.Error("Failed to build collected form request", slog.Any("error", err))
		return
	}
	event.Client.Fetch(req)
	c.logger.Debug("Collected form dispatched", slog.String("portal", PortalID(c.settings, event.Payload)))
}

// HandleForm submits a form through the configured forms API generation.
func (c *Component) HandleForm(event Event) {
	build := LegacyFormRequest
	if c.settings.FormsAPI == FormsAPIIntegration {
		build = IntegrationFormRequest
	}

	if !event.Payload.Has("formId") {
		c.logger.Warn("Form event without formId", slog.String("api", string(c.settings.FormsAPI)))
	}

	req, err := build(c.settings, event.Payload, event.Context, visitorToken(event.Client))
	if err != nil {
		c.logger.Error("Failed to build form request", slog.Any("error", err))
		return
	}
	event.Client.Fetch(req)
	c.logger.Debug("Form dispatched",
		slog.String("api", string(c.settings.FormsAPI)),
		slog.String("portal", PortalID(c.settings, event.Payload)))
}

func visitorToken(cookies CookieReader) string {
	utk, _ := readCookie(cookies, VisitorCookie)
	return utk
}
