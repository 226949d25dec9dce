package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/clover"
	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
	"github.com/vibast-solutions/ms-go-clover-pos/app/notifier"
)

// NotifyResult is the outcome of notifying one POS config.
type NotifyResult struct {
	PosConfigID uint64
	Delivered   bool
	Error       string
}

type NotificationResult struct {
	Verification    bool
	PaymentMethodID uint64
	Reference       string
	Notified        []NotifyResult
}

// HandleNotification stores a Clover webhook payload and signals whoever waits for it.
func (s *TerminalService) HandleNotification(ctx context.Context, raw []byte) (*NotificationResult, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return nil, ErrInvalidNotification
	}

	deviceID, merchantID := notificationIdentifiers(payload)
	if deviceID == "" && merchantID == "" {
		if _, ok := payload["verificationCode"]; ok {
			s.logger.Info("Clover webhook verification received")
			return &NotificationResult{Verification: true}, nil
		}
		return nil, ErrMissingIdentifiers
	}

	method, err := s.methodRepo.FindCloverByDeviceOrMerchant(ctx, deviceID, merchantID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, ErrPaymentMethodNotFound
	}

	now := time.Now().UTC()
	if err := s.methodRepo.SetLatestResponse(ctx, method.ID, string(raw), now); err != nil {
		return nil, err
	}

	l := s.logger.WithField("payment_method_id", method.ID)
	result := &NotificationResult{PaymentMethodID: method.ID}

	log, err := s.correlate(ctx, method.ID, payload, now)
	if err != nil {
		l.WithError(err).Warn("Failed to correlate notification")
	}

	event := &entity.TerminalEvent{
		PaymentMethodID: method.ID,
		PayloadJSON:     string(raw),
		CreatedAt:       now,
	}
	if log != nil {
		event.TransactionLogID = &log.ID
		event.Reference = &log.Reference
		result.Reference = log.Reference
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	if log != nil {
		l = l.WithField("reference", log.Reference)
		if err := s.notifier.PublishCompletion(ctx, log.Reference, raw); err != nil {
			l.WithError(err).Warn("Failed to publish operation completion")
		}
		if owner := derefString(method.DeviceID); owner != "" {
			if _, err := s.locker.Release(ctx, owner, log.Reference); err != nil {
				l.WithError(err).Warn("Failed to release device lock")
			}
		}
	}

	result.Notified = s.fanOut(ctx, method.ID, result.Reference)
	return result, nil
}

func (s *TerminalService) correlate(ctx context.Context, paymentMethodID uint64, payload map[string]any, now time.Time) (*entity.TransactionLog, error) {
	if externalPaymentID := clover.ExternalPaymentID(payload); externalPaymentID != "" {
		log, err := s.logRepo.FindByExternalPaymentID(ctx, paymentMethodID, externalPaymentID)
		if err != nil || log != nil {
			return log, err
		}
	}

	since := now.Add(-s.cloverCfg.PaymentTimeout)
	return s.logRepo.FindLatestInFlightByTypes(ctx, paymentMethodID, []string{entity.TransactionTypeSale, entity.TransactionTypeRefund}, since)
}

func (s *TerminalService) fanOut(ctx context.Context, paymentMethodID uint64, reference string) []NotifyResult {
	configIDs, err := s.posConfigRepo.ListConfigIDs(ctx, paymentMethodID)
	if err != nil {
		s.logger.WithError(err).WithField("payment_method_id", paymentMethodID).Error("Failed to list POS configs")
		return []NotifyResult{{Error: err.Error()}}
	}

	results := make([]NotifyResult, 0, len(configIDs))
	for _, configID := range configIDs {
		err := s.notifier.NotifyPosConfig(ctx, notifier.PosConfigMessage{
			Type:            notifier.MessageTypeLatestResponse,
			PosConfigID:     configID,
			PaymentMethodID: paymentMethodID,
			Reference:       reference,
		})
		res := NotifyResult{PosConfigID: configID, Delivered: err == nil}
		if err != nil {
			res.Error = err.Error()
			s.logger.WithError(err).WithField("pos_config_id", configID).Warn("Failed to notify POS config")
		}
		results = append(results, res)
	}
	return results
}

func notificationIdentifiers(payload map[string]any) (deviceID, merchantID string) {
	deviceID = stringField(payload, "deviceId")
	if deviceID == "" {
		if payment, ok := payload["payment"].(map[string]any); ok {
			if device, ok := payment["device"].(map[string]any); ok {
				deviceID = stringField(device, "id")
			}
		}
	}
	return deviceID, stringField(payload, "merchantId")
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%.0f", v))
	default:
		return ""
	}
}
