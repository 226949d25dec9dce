package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-clover-pos/app/factory"
	"github.com/vibast-solutions/ms-go-clover-pos/app/mapper"
	"github.com/vibast-solutions/ms-go-clover-pos/app/service"
	"github.com/vibast-solutions/ms-go-clover-pos/app/types"
)

const (
	HeaderCloverReference = "X-Clover-Reference"
	HeaderCloverStatus    = "X-Clover-Status"
)

// TerminalController serves the POS-facing terminal routes.
type TerminalController struct {
	terminalService *service.TerminalService
	logger          logrus.FieldLogger
}

func NewTerminalController(terminalService *service.TerminalService) *TerminalController {
	return &TerminalController{
		terminalService: terminalService,
		logger:          factory.NewModuleLogger("terminal-controller"),
	}
}

// Proxy answers 200 with the Clover result as body. Clover and network failures are carried
// in the body as {"error":{"status_code":..,"message":..}}.
func (c *TerminalController) Proxy(ctx echo.Context) error {
	req, err := types.NewProxyRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.terminalService.Proxy(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Proxy Clover operation", err)
	}

	ctx.Response().Header().Set(HeaderCloverReference, result.Reference)
	ctx.Response().Header().Set(HeaderCloverStatus, strconv.Itoa(result.StatusCode))
	return ctx.JSONBlob(http.StatusOK, result.Body)
}

// LatestResponse writes the buffered terminal payload verbatim, or false when nothing is buffered.
func (c *TerminalController) LatestResponse(ctx echo.Context) error {
	req, err := types.NewPaymentMethodIDRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	latest, err := c.terminalService.LatestResponse(ctx.Request().Context(), req.GetId())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Get latest response", err)
	}
	if latest == nil {
		return ctx.JSONBlob(http.StatusOK, []byte("false"))
	}
	return ctx.JSONBlob(http.StatusOK, latest)
}

func (c *TerminalController) Operation(ctx echo.Context) error {
	req, err := types.NewOperationRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	details, err := c.terminalService.Operation(ctx.Request().Context(), req.GetPaymentMethodId(), req.GetReference())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Get operation", err)
	}
	return ctx.JSON(http.StatusOK, mapper.OperationToResponse(details))
}

func (c *TerminalController) AwaitOperation(ctx echo.Context) error {
	req, err := types.NewOperationRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	timeout := time.Duration(req.GetTimeoutSeconds()) * time.Second
	payload, err := c.terminalService.AwaitOperation(ctx.Request().Context(), req.GetPaymentMethodId(), req.GetReference(), timeout)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Await operation", err)
	}
	return ctx.JSON(http.StatusOK, &types.AwaitOperationResponse{Reference: req.GetReference(), Response: payload})
}

func (c *TerminalController) RecordPayment(ctx echo.Context) error {
	req, err := types.NewRecordPaymentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	payment, err := c.terminalService.RecordPayment(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Record Clover payment", err)
	}
	return ctx.JSON(http.StatusCreated, &types.CloverPaymentResponse{Payment: mapper.CloverPaymentToResponse(payment)})
}

func (c *TerminalController) GetCloverPayment(ctx echo.Context) error {
	req, err := types.NewGetCloverPaymentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	payment, err := c.terminalService.GetCloverPayment(ctx.Request().Context(), req.GetPosPaymentId())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Get Clover payment", err)
	}
	return ctx.JSON(http.StatusOK, &types.CloverPaymentResponse{Payment: mapper.CloverPaymentToResponse(payment)})
}
