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

const (
	missingCodeMessage       = "No authorization code received from Clover."
	missingIdentifierMessage = "Could not identify the payment method. Please try again."
	methodNotConfiguredText  = "Payment method not found. Please configure Clover settings first."
	callbackFailedMessage    = "The authorization code could not be saved. Please try again."
)

type OAuthController struct {
	oauthService *service.OAuthService
	logger       logrus.FieldLogger
}

func NewOAuthController(oauthService *service.OAuthService) *OAuthController {
	return &OAuthController{
		oauthService: oauthService,
		logger:       factory.NewModuleLogger("oauth-controller"),
	}
}

// Authorize receives the browser redirect Clover issues after a merchant approves the app.
func (c *OAuthController) Authorize(ctx echo.Context) error {
	req := types.NewOAuthCallbackRequestFromContext(ctx)
	l := factory.LoggerWithContext(c.logger, ctx).WithField("merchant_id", req.GetMerchantId())
	l.Info("Clover OAuth callback received")

	method, err := c.oauthService.HandleCallback(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCode):
			return renderPage(ctx, http.StatusBadRequest, oauthErrorPage, oauthErrorData{Error: missingCodeMessage})
		case errors.Is(err, service.ErrMissingIdentifier):
			return renderPage(ctx, http.StatusBadRequest, oauthErrorPage, oauthErrorData{Error: missingIdentifierMessage})
		case errors.Is(err, service.ErrPaymentMethodNotFound):
			return renderPage(ctx, http.StatusNotFound, oauthErrorPage, oauthErrorData{Error: methodNotConfiguredText})
		default:
			l.WithError(err).Error("Store authorization code failed")
			return renderPage(ctx, http.StatusInternalServerError, oauthErrorPage, oauthErrorData{Error: callbackFailedMessage})
		}
	}

	return renderPage(ctx, http.StatusOK, oauthSuccessPage, oauthSuccessData{Name: method.Name})
}
