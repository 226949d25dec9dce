package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-clover-pos/app/factory"
	"github.com/vibast-solutions/ms-go-clover-pos/app/mapper"
	"github.com/vibast-solutions/ms-go-clover-pos/app/service"
	"github.com/vibast-solutions/ms-go-clover-pos/app/types"
)

// AdminController serves payment method configuration and the transaction log.
type AdminController struct {
	methodService   *service.PaymentMethodService
	terminalService *service.TerminalService
	logger          logrus.FieldLogger
}

func NewAdminController(methodService *service.PaymentMethodService, terminalService *service.TerminalService) *AdminController {
	return &AdminController{
		methodService:   methodService,
		terminalService: terminalService,
		logger:          factory.NewModuleLogger("admin-controller"),
	}
}

func (c *AdminController) CreatePaymentMethod(ctx echo.Context) error {
	req, err := types.NewCreatePaymentMethodRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	method, err := c.methodService.CreatePaymentMethod(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Create payment method", err)
	}
	return ctx.JSON(http.StatusCreated, &types.PaymentMethodResponse{PaymentMethod: mapper.PaymentMethodToResponse(method)})
}

func (c *AdminController) UpdatePaymentMethod(ctx echo.Context) error {
	req, err := types.NewUpdatePaymentMethodRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	method, err := c.methodService.UpdatePaymentMethod(ctx.Request().Context(), req.GetId(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Update payment method", err)
	}
	return ctx.JSON(http.StatusOK, &types.PaymentMethodResponse{PaymentMethod: mapper.PaymentMethodToResponse(method)})
}

func (c *AdminController) GetPaymentMethod(ctx echo.Context) error {
	req, err := c.idRequest(ctx)
	if err != nil || req == nil {
		return err
	}

	method, err := c.methodService.GetPaymentMethod(ctx.Request().Context(), req.GetId())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Get payment method", err)
	}
	return ctx.JSON(http.StatusOK, &types.PaymentMethodResponse{PaymentMethod: mapper.PaymentMethodToResponse(method)})
}

func (c *AdminController) ListPaymentMethods(ctx echo.Context) error {
	req, err := types.NewListPaymentMethodsRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.methodService.ListPaymentMethods(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "List payment methods", err)
	}
	return ctx.JSON(http.StatusOK, &types.ListPaymentMethodsResponse{PaymentMethods: mapper.PaymentMethodsToResponse(items)})
}

func (c *AdminController) DeletePaymentMethod(ctx echo.Context) error {
	req, err := c.idRequest(ctx)
	if err != nil || req == nil {
		return err
	}

	if err := c.methodService.DeletePaymentMethod(ctx.Request().Context(), req.GetId()); err != nil {
		return writeServiceError(ctx, c.logger, "Delete payment method", err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *AdminController) AuthorizationURL(ctx echo.Context) error {
	req, err := c.idRequest(ctx)
	if err != nil || req == nil {
		return err
	}

	url, err := c.methodService.AuthorizationURL(ctx.Request().Context(), req.GetId())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Build authorization url", err)
	}
	return ctx.JSON(http.StatusOK, &types.AuthorizationURLResponse{
		AuthorizationUrl: url,
		RedirectUrl:      c.methodService.RedirectURL(),
	})
}

func (c *AdminController) GenerateAccessToken(ctx echo.Context) error {
	req, err := c.idRequest(ctx)
	if err != nil || req == nil {
		return err
	}

	method, err := c.methodService.GenerateAccessToken(ctx.Request().Context(), req.GetId())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Generate access token", err)
	}
	return ctx.JSON(http.StatusOK, &types.PaymentMethodResponse{PaymentMethod: mapper.PaymentMethodToResponse(method)})
}

func (c *AdminController) FetchDevice(ctx echo.Context) error {
	req, err := c.idRequest(ctx)
	if err != nil || req == nil {
		return err
	}

	method, err := c.methodService.FetchDevice(ctx.Request().Context(), req.GetId())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Fetch device", err)
	}
	return ctx.JSON(http.StatusOK, &types.PaymentMethodResponse{PaymentMethod: mapper.PaymentMethodToResponse(method)})
}

func (c *AdminController) RevokeToken(ctx echo.Context) error {
	req, err := c.idRequest(ctx)
	if err != nil || req == nil {
		return err
	}

	method, err := c.methodService.RevokeToken(ctx.Request().Context(), req.GetId())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Revoke token", err)
	}
	return ctx.JSON(http.StatusOK, &types.PaymentMethodResponse{PaymentMethod: mapper.PaymentMethodToResponse(method)})
}

func (c *AdminController) TestConnection(ctx echo.Context) error {
	req, err := c.idRequest(ctx)
	if err != nil || req == nil {
		return err
	}

	if err := c.methodService.TestConnection(ctx.Request().Context(), req.GetId()); err != nil {
		return writeServiceError(ctx, c.logger, "Test connection", err)
	}
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Connection successful! Check your Clover device."})
}

func (c *AdminController) ListPosConfigs(ctx echo.Context) error {
	req, err := c.idRequest(ctx)
	if err != nil || req == nil {
		return err
	}

	ids, err := c.methodService.ListPosConfigs(ctx.Request().Context(), req.GetId())
	if err != nil {
		return writeServiceError(ctx, c.logger, "List POS configs", err)
	}
	return ctx.JSON(http.StatusOK, &types.PosConfigsResponse{PaymentMethodId: req.GetId(), PosConfigIds: ids})
}

func (c *AdminController) LinkPosConfig(ctx echo.Context) error {
	req, err := types.NewPosConfigLinkRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.methodService.LinkPosConfig(ctx.Request().Context(), req.GetId(), req.GetPosConfigId()); err != nil {
		return writeServiceError(ctx, c.logger, "Link POS config", err)
	}
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "POS config linked"})
}

func (c *AdminController) UnlinkPosConfig(ctx echo.Context) error {
	req, err := types.NewPosConfigLinkRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.methodService.UnlinkPosConfig(ctx.Request().Context(), req.GetId(), req.GetPosConfigId()); err != nil {
		return writeServiceError(ctx, c.logger, "Unlink POS config", err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *AdminController) ListTransactionLogs(ctx echo.Context) error {
	req, err := types.NewListTransactionLogsRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.terminalService.ListTransactionLogs(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "List transaction logs", err)
	}
	return ctx.JSON(http.StatusOK, &types.ListTransactionLogsResponse{TransactionLogs: mapper.TransactionLogsToResponse(items)})
}

// idRequest parses the :id param. A nil request means the error response was already written.
func (c *AdminController) idRequest(ctx echo.Context) (*types.PaymentMethodIDRequest, error) {
	req, err := types.NewPaymentMethodIDRequestFromContext(ctx)
	if err != nil {
		return nil, writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return nil, writeError(ctx, http.StatusBadRequest, err.Error())
	}
	return req, nil
}
