package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-clover-pos/app/factory"
	"github.com/vibast-solutions/ms-go-clover-pos/app/service"
	"github.com/vibast-solutions/ms-go-clover-pos/app/types"
)

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}

// writeServiceError maps service sentinels to HTTP statuses. Anything unknown is logged and hidden.
func writeServiceError(ctx echo.Context, logger logrus.FieldLogger, action string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrConfiguration),
		errors.Is(err, service.ErrUnknownOperation):
		return writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPaymentMethodNotFound):
		return writeError(ctx, http.StatusNotFound, "payment method not found")
	case errors.Is(err, service.ErrOperationNotFound):
		return writeError(ctx, http.StatusNotFound, "operation not found")
	case errors.Is(err, service.ErrCloverPaymentNotFound):
		return writeError(ctx, http.StatusNotFound, "clover payment not found")
	case errors.Is(err, service.ErrNoDevices):
		return writeError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDeviceBusy),
		errors.Is(err, service.ErrDeviceAlreadyUsed),
		errors.Is(err, service.ErrPaymentAlreadyRecorded):
		return writeError(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrCloverRequest):
		factory.LoggerWithContext(logger, ctx).WithError(err).Warn(action + " rejected by Clover")
		return writeError(ctx, http.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrAwaitTimeout):
		return writeError(ctx, http.StatusGatewayTimeout, err.Error())
	default:
		factory.LoggerWithContext(logger, ctx).WithError(err).Error(action + " failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}
