package v1

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"hsrelay/internal/config"
	"hsrelay/internal/hubspot"
	"hsrelay/internal/visitors"
)

type visitorResponse struct {
	hubspot.VisitorInfo
	VisitorAlias string `json:"visitorAlias"`
	GeneratedAt  string `json:"generatedAt"`
}

// VisitorHandler describes the tracking state carried by the caller's
// cookies. It never writes cookies or contacts HubSpot.
type VisitorHandler struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewVisitorHandler(cfg *config.Config, logger *slog.Logger) *VisitorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisitorHandler{cfg: cfg, logger: logger}
}

// Show handles GET /x/api/v1/me.
func (h *VisitorHandler) Show(c *cartridge.Context) error {
	if strings.EqualFold(strings.TrimSpace(c.Get("Early-Data")), "1") {
		h.logger.Info("Received early data request, returning 425 to force replay",
			slog.String("path", c.Path()))
		return c.Status(fiber.StatusTooEarly).JSON(fiber.Map{
			"error": "Replay required",
			"code":  "TOO_EARLY",
		})
	}

	if err := validateOrigin(c.Ctx, h.cfg.AllowedOriginList(), h.logger); err != nil {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"error": errInvalidOrigin,
			"code":  "INVALID_ORIGIN",
		})
	}

	info := hubspot.DescribeVisitor(cookieReader{c: c.Ctx})

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(http.StatusOK).JSON(visitorResponse{
		VisitorInfo:  info,
		VisitorAlias: visitors.VisitorAlias(info.VisitorID),
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	})
}
