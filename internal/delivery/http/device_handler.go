package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"trend-trader/internal/domain"
)

// DeviceHandler registers push notification targets.
type DeviceHandler struct {
	tokens   domain.DeviceTokenRepository
	notifier domain.Notifier
	now      func() time.Time
}

// NewDeviceHandler creates the handler. notifier may be nil when push
// delivery is not configured.
func NewDeviceHandler(tokens domain.DeviceTokenRepository, notifier domain.Notifier) *DeviceHandler {
	return &DeviceHandler{tokens: tokens, notifier: notifier, now: time.Now}
}

func (h *DeviceHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/devices", h.Register)
	g.DELETE("/devices/:token", h.Unregister)
	g.GET("/devices/count", h.Count)
	g.POST("/notifications/test", h.SendTest)
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" default:"android" validate:"oneof=android ios web"`
}

type deviceResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Register handles POST /api/devices
func (h *DeviceHandler) Register(c echo.Context) error {
	req := &RegisterDeviceRequest{}
	if verr := readAndValidateRequest(c, req); verr != nil {
		return badRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	if err := h.tokens.RegisterToken(ctx, req.Token, req.Platform, h.now().UTC()); err != nil {
		log.Error().Err(err).Msg("register device token failed")
		return internalErrorResponse(c)
	}
	return h.respondCount(c, "Token registered successfully", true)
}

// Unregister handles DELETE /api/devices/:token
func (h *DeviceHandler) Unregister(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return badRequestResponse(c, []ValidationError{{Code: "ERR_REQUIRED", Field: "token", Message: "token is required"}})
	}

	if err := h.tokens.UnregisterToken(c.Request().Context(), token); err != nil {
		log.Error().Err(err).Msg("unregister device token failed")
		return internalErrorResponse(c)
	}
	return h.respondCount(c, "Token unregistered successfully", false)
}

// Count handles GET /api/devices/count
func (h *DeviceHandler) Count(c echo.Context) error {
	return h.respondCount(c, "Token count retrieved", false)
}

// SendTest handles POST /api/notifications/test
func (h *DeviceHandler) SendTest(c echo.Context) error {
	if h.notifier == nil {
		return unavailableResponse(c, "push notifications are not configured")
	}

	err := h.notifier.Notify(c.Request().Context(), domain.Notification{
		Kind:  "TEST",
		Title: "🧪 Test Notification",
		Body:  "Notifications from the trend trader are working ✅",
		Data:  map[string]string{"timestamp": h.now().UTC().Format(time.RFC3339)},
	})
	if err != nil {
		log.Warn().Err(err).Msg("test notification failed")
		return unavailableResponse(c, "failed to send notification: "+err.Error())
	}
	return h.respondCount(c, "Test notification sent successfully", false)
}

func (h *DeviceHandler) respondCount(c echo.Context, msg string, created bool) error {
	tokens, err := h.tokens.GetAllTokens(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("list device tokens failed")
		return internalErrorResponse(c)
	}
	resp := deviceResponse{Message: msg, Count: len(tokens)}
	if created {
		return createdResponse(c, resp)
	}
	return successResponse(c, resp)
}
