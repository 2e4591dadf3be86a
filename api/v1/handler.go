package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"hsrelay/internal/config"
	"hsrelay/internal/hubspot"
	"hsrelay/internal/outbound"
	"hsrelay/internal/pkg/user_agent"
)

const (
	msgEventAdded     = "Event added successfully"
	msgEventSkipped   = "Event skipped"
	errInvalidRequest = "Invalid request"
	errInvalidOrigin  = "Invalid origin"
)

// Fetcher hands outbound requests to the delivery pipeline. It reports false
// when the request was dropped.
type Fetcher interface {
	Fetch(req hubspot.Request, origin outbound.Origin) bool
}

type clientInfo struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Referrer     string `json:"referrer"`
	UserAgent    string `json:"userAgent"`
	Language     string `json:"language"`
	ScreenWidth  int    `json:"screenWidth"`
	ScreenHeight int    `json:"screenHeight"`
}

type eventRequest struct {
	Type    hubspot.EventType `json:"type"`
	Payload hubspot.Payload   `json:"payload"`
	Client  clientInfo        `json:"client"`
}

type eventResult struct {
	Skipped bool
	Scripts []string
	Dropped int
}

// EventsHandler receives browser events and runs them through the tracking
// component.
type EventsHandler struct {
	component *hubspot.Component
	fetcher   Fetcher
	cfg       *config.Config
	logger    *slog.Logger
}

func NewEventsHandler(component *hubspot.Component, fetcher Fetcher, cfg *config.Config, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		component: component,
		fetcher:   fetcher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Create handles POST /x/api/v1/events.
func (h *EventsHandler) Create(c *cartridge.Context) error {
	h.logger.Debug("Received event request", slog.String("method", c.Method()), slog.String("path", c.Path()))

	var params eventRequest
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		h.logger.Debug("Failed to parse event request", slog.Any("error", err))
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
			"code":  "INVALID_REQUEST",
		})
	}

	if err := validateOrigin(c.Ctx, h.cfg.AllowedOriginList(), h.logger); err != nil {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"error": errInvalidOrigin,
			"code":  "INVALID_ORIGIN",
		})
	}

	result, err := h.process(c.Ctx, params)
	if err != nil {
		var unknown *hubspot.UnknownEventTypeError
		if errors.As(err, &unknown) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": unknown.Error(),
				"code":  "UNKNOWN_EVENT_TYPE",
			})
		}
		h.logger.Error("Failed to handle event", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to handle event",
			"code":  "HANDLER_ERROR",
		})
	}

	message := msgEventAdded
	if result.Skipped {
		message = msgEventSkipped
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": message,
		"scripts": result.Scripts,
	})
}

// Beacon handles events sent with navigator.sendBeacon. The browser never
// reads the response, so it always answers 202.
func (h *EventsHandler) Beacon(c *cartridge.Context) error {
	var params eventRequest
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		h.logger.Debug("Failed to parse beacon request", slog.Any("error", err))
		return c.SendStatus(http.StatusAccepted)
	}

	if err := validateOrigin(c.Ctx, h.cfg.AllowedOriginList(), h.logger); err != nil {
		h.logger.Debug("Invalid origin in beacon request")
		return c.SendStatus(http.StatusAccepted)
	}

	if _, err := h.process(c.Ctx, params); err != nil {
		h.logger.Debug("Failed to handle beacon event",
			slog.String("type", string(params.Type)),
			slog.Any("error", err))
	}
	return c.SendStatus(http.StatusAccepted)
}

func (h *EventsHandler) process(c *fiber.Ctx, params eventRequest) (eventResult, error) {
	if !params.Type.Valid() {
		return eventResult{}, &hubspot.UnknownEventTypeError{Type: params.Type}
	}

	clientCtx := h.clientContext(c, params.Client)

	if h.cfg.SkipBots {
		if bot, ok := user_agent.Detect(clientCtx.UserAgent); ok {
			h.logger.Debug("Skipping bot event",
				slog.String("bot", bot.Name),
				slog.String("category", bot.Category))
			return eventResult{Skipped: true, Scripts: []string{}}, nil
		}
	}
	if h.cfg.IsIPExcluded(clientCtx.IP) {
		h.logger.Debug("Skipping event from excluded IP", slog.String("type", string(params.Type)))
		return eventResult{Skipped: true, Scripts: []string{}}, nil
	}

	client := newFiberClient(c, h.cfg, h.fetcher, outbound.Origin{
		UserAgent: clientCtx.UserAgent,
		IP:        clientCtx.IP,
	})

	err := h.component.Handle(hubspot.Event{
		Type:    params.Type,
		Payload: params.Payload,
		Context: clientCtx,
		Client:  client,
	})
	if err != nil {
		return eventResult{}, err
	}

	if client.dropped > 0 {
		h.logger.Warn("Outbound requests dropped for event",
			slog.String("type", string(params.Type)),
			slog.Int("dropped", client.dropped))
	}

	return eventResult{Scripts: client.scripts, Dropped: client.dropped}, nil
}

// clientContext merges what the page reported with what the request carries.
func (h *EventsHandler) clientContext(c *fiber.Ctx, info clientInfo) hubspot.ClientContext {
	userAgent := info.UserAgent
	if userAgent == "" {
		userAgent = c.Get(fiber.HeaderUserAgent)
		if forwardedUA := c.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
			userAgent = forwardedUA
		}
	}

	pageURL := info.URL
	if pageURL == "" {
		pageURL = c.Get(fiber.HeaderReferer)
	}

	lang := info.Language
	if lang == "" {
		lang = preferredLanguage(c.Get(fiber.HeaderAcceptLanguage))
	}

	return hubspot.ClientContext{
		URL:          pageURL,
		Title:        info.Title,
		Referrer:     info.Referrer,
		UserAgent:    userAgent,
		Language:     lang,
		IP:           getClientIP(c),
		ScreenWidth:  info.ScreenWidth,
		ScreenHeight: info.ScreenHeight,
	}
}
