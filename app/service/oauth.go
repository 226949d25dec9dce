package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
	"github.com/vibast-solutions/ms-go-clover-pos/app/repository"
)

type oauthCallbackRequest interface {
	GetCode() string
	GetMerchantId() string
	GetClientId() string
}

type OAuthService struct {
	methodRepo paymentMethodRepository
}

func NewOAuthService(methodRepo paymentMethodRepository) *OAuthService {
	return &OAuthService{methodRepo: methodRepo}
}

// HandleCallback stores the authorization code on the method matching every identifier given.
func (s *OAuthService) HandleCallback(ctx context.Context, req oauthCallbackRequest) (*entity.PaymentMethod, error) {
	code := strings.TrimSpace(req.GetCode())
	if code == "" {
		return nil, ErrMissingCode
	}

	merchantID := strings.TrimSpace(req.GetMerchantId())
	clientID := strings.TrimSpace(req.GetClientId())
	if merchantID == "" && clientID == "" {
		return nil, ErrMissingIdentifier
	}

	method, err := s.methodRepo.FindByMerchantOrApp(ctx, merchantID, clientID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, ErrPaymentMethodNotFound
	}

	now := time.Now().UTC()
	if err := s.methodRepo.SetAuthorizationCode(ctx, method.ID, code, now); err != nil {
		if errors.Is(err, repository.ErrPaymentMethodNotFound) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}

	method.AuthorizationCode = &code
	method.UpdatedAt = now
	return method, nil
}
