package mapper

import (
	"encoding/json"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
	"github.com/vibast-solutions/ms-go-clover-pos/app/service"
	"github.com/vibast-solutions/ms-go-clover-pos/app/types"
)

func PaymentMethodToResponse(item *entity.PaymentMethod) *types.PaymentMethod {
	if item == nil {
		return nil
	}

	return &types.PaymentMethod{
		Id:                   item.ID,
		Name:                 item.Name,
		UsePaymentTerminal:   item.UsePaymentTerminal,
		Environment:          item.Environment,
		MerchantId:           derefString(item.MerchantID),
		DeviceId:             derefString(item.DeviceID),
		AppId:                derefString(item.AppID),
		HasAppSecret:         derefString(item.AppSecret) != "",
		HasAccessToken:       item.HasAccessToken(),
		HasAuthorizationCode: derefString(item.AuthorizationCode) != "",
		TokenExpiry:          formatTime(item.TokenExpiry),
		CreatedAt:            item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentMethodsToResponse(items []*entity.PaymentMethod) []*types.PaymentMethod {
	result := make([]*types.PaymentMethod, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentMethodToResponse(item))
	}
	return result
}

func TransactionLogToResponse(item *entity.TransactionLog) *types.TransactionLog {
	if item == nil {
		return nil
	}

	return &types.TransactionLog{
		Id:                item.ID,
		Reference:         item.Reference,
		PaymentMethodId:   item.PaymentMethodID,
		PosOrderId:        derefUint64(item.PosOrderID),
		PosPaymentId:      derefUint64(item.PosPaymentID),
		ExternalPaymentId: derefString(item.ExternalPaymentID),
		Type:              item.Type,
		Status:            item.Status,
		AmountCents:       item.AmountCents,
		Currency:          item.Currency,
		ErrorMessage:      derefString(item.ErrorMessage),
		RequestData:       derefString(item.RequestData),
		ResponseData:      derefString(item.ResponseData),
		RequestTimestamp:  item.RequestTimestamp.UTC().Format(time.RFC3339),
		ResponseTimestamp: formatTime(item.ResponseTimestamp),
		DurationSeconds:   item.DurationSeconds,
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func TransactionLogsToResponse(items []*entity.TransactionLog) []*types.TransactionLog {
	result := make([]*types.TransactionLog, 0, len(items))
	for _, item := range items {
		result = append(result, TransactionLogToResponse(item))
	}
	return result
}

func TerminalEventToResponse(item *entity.TerminalEvent) *types.TerminalEvent {
	if item == nil {
		return nil
	}

	payload := json.RawMessage(item.PayloadJSON)
	if !json.Valid(payload) {
		payload, _ = json.Marshal(item.PayloadJSON)
	}
	return &types.TerminalEvent{
		Id:        item.ID,
		Reference: derefString(item.Reference),
		Payload:   payload,
		CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func OperationToResponse(details *service.OperationDetails) *types.OperationResponse {
	if details == nil {
		return nil
	}

	events := make([]*types.TerminalEvent, 0, len(details.Events))
	for _, event := range details.Events {
		events = append(events, TerminalEventToResponse(event))
	}
	return &types.OperationResponse{
		TransactionLog: TransactionLogToResponse(details.Log),
		Events:         events,
	}
}

func CloverPaymentToResponse(item *entity.CloverPayment) *types.CloverPayment {
	if item == nil {
		return nil
	}

	return &types.CloverPayment{
		Id:                item.ID,
		PosPaymentId:      item.PosPaymentID,
		PosOrderId:        derefUint64(item.PosOrderID),
		PaymentMethodId:   item.PaymentMethodID,
		CloverPaymentId:   derefString(item.CloverPaymentID),
		OrderId:           derefString(item.OrderID),
		ExternalPaymentId: derefString(item.ExternalPaymentID),
		RefundId:          derefString(item.RefundID),
		EmployeeId:        derefString(item.EmployeeID),
		Result:            derefString(item.Result),
		AmountCents:       derefInt64(item.AmountCents),
		AuthCode:          derefString(item.AuthCode),
		CardType:          derefString(item.CardType),
		CardLastFour:      derefString(item.CardLastFour),
		Reference:         derefString(item.Reference),
		Type:              derefString(item.Type),
		CreatedTime:       formatTime(item.CreatedTime),
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NotificationToResponse(result *service.NotificationResult) *types.NotificationResponse {
	resp := &types.NotificationResponse{Status: "ok"}
	if result == nil {
		return resp
	}

	resp.Reference = result.Reference
	for _, item := range result.Notified {
		resp.Notified = append(resp.Notified, &types.NotifyResult{
			PosConfigId: item.PosConfigID,
			Delivered:   item.Delivered,
			Error:       item.Error,
		})
	}
	return resp
}

func formatTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefUint64(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
