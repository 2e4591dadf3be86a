package v1

import (
	"bytes"
	_ "embed"
	"log/slog"
	"text/template"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
)

//go:embed sdk.js
var sdkTemplate string

var sdkScript = template.Must(template.New("sdk.js").Parse(sdkTemplate))

// SDKHandler serves the browser script that posts events to this relay.
type SDKHandler struct {
	logger *slog.Logger
}

func NewSDKHandler(logger *slog.Logger) *SDKHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SDKHandler{logger: logger}
}

// Show handles GET /y/api/v1/sdk.js.
func (h *SDKHandler) Show(c *cartridge.Context) error {
	var buf bytes.Buffer
	data := map[string]string{
		"BaseURL": c.BaseURL(),
	}
	if err := sdkScript.Execute(&buf, data); err != nil {
		h.logger.Error("Failed to render SDK template", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	content := buf.Bytes()
	etag := generateETag(content)

	if c.Get(fiber.HeaderIfNoneMatch) == etag {
		h.logger.Debug("ETag match, returning 304",
			slog.String("etag", etag),
			slog.String("path", c.Path()))
		return c.Status(fiber.StatusNotModified).Send(nil)
	}

	c.Set(fiber.HeaderContentType, "application/javascript")
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	c.Set(fiber.HeaderETag, etag)
	c.Set("Cross-Origin-Resource-Policy", "cross-origin")
	return c.Send(content)
}
