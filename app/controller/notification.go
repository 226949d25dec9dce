package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-clover-pos/app/factory"
	"github.com/vibast-solutions/ms-go-clover-pos/app/mapper"
	"github.com/vibast-solutions/ms-go-clover-pos/app/service"
	"github.com/vibast-solutions/ms-go-clover-pos/app/types"
)

const maxNotificationBytes = 1 << 20

type NotificationController struct {
	terminalService *service.TerminalService
	logger          logrus.FieldLogger
}

func NewNotificationController(terminalService *service.TerminalService) *NotificationController {
	return &NotificationController{
		terminalService: terminalService,
		logger:          factory.NewModuleLogger("notification-controller"),
	}
}

func (c *NotificationController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok", Message: "Clover POS connector is running"})
}

func (c *NotificationController) Test(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok", Message: "Clover POS controller is active"})
}

// Notification accepts Clover webhooks. The sender is not authenticated.
func (c *NotificationController) Notification(ctx echo.Context) error {
	l := factory.LoggerWithContext(c.logger, ctx)

	raw, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxNotificationBytes))
	if err != nil {
		return c.writeStatus(ctx, http.StatusBadRequest, "Invalid JSON")
	}

	result, err := c.terminalService.HandleNotification(ctx.Request().Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidNotification):
			l.Warn("Invalid JSON in Clover notification")
			return c.writeStatus(ctx, http.StatusBadRequest, "Invalid JSON")
		case errors.Is(err, service.ErrMissingIdentifiers):
			l.Warn("Clover notification missing device or merchant id")
			return c.writeStatus(ctx, http.StatusBadRequest, "Missing identifiers")
		case errors.Is(err, service.ErrPaymentMethodNotFound):
			l.Warn("No payment method found for Clover notification")
			return c.writeStatus(ctx, http.StatusNotFound, "Payment method not found")
		default:
			l.WithError(err).Error("Handle Clover notification failed")
			return c.writeStatus(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	if result.Verification {
		return ctx.JSON(http.StatusOK, &types.NotificationResponse{Status: "ok", Message: "verification received"})
	}

	l.WithField("payment_method_id", result.PaymentMethodID).WithField("reference", result.Reference).Info("Clover notification stored")
	return ctx.JSON(http.StatusOK, mapper.NotificationToResponse(result))
}

func (c *NotificationController) writeStatus(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.NotificationResponse{Status: "error", Message: message})
}
