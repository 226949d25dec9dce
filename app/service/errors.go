package service

import "errors"

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrPaymentMethodNotFound  = errors.New("payment method not found")
	ErrConfiguration          = errors.New("clover configuration error")
	ErrUnknownOperation       = errors.New("unknown operation")
	ErrDeviceBusy             = errors.New("device has an operation in progress")
	ErrDeviceAlreadyUsed      = errors.New("device id is already used by another payment method")
	ErrCloverRequest          = errors.New("clover request failed")
	ErrNoDevices              = errors.New("no devices found for this merchant")
	ErrMissingCode            = errors.New("missing authorization code")
	ErrMissingIdentifier      = errors.New("missing merchant or client identifier")
	ErrInvalidNotification    = errors.New("invalid notification payload")
	ErrMissingIdentifiers     = errors.New("notification has no device or merchant identifier")
	ErrOperationNotFound      = errors.New("operation not found")
	ErrAwaitTimeout           = errors.New("timed out waiting for terminal response")
	ErrPaymentAlreadyRecorded = errors.New("clover payment already recorded")
	ErrCloverPaymentNotFound  = errors.New("clover payment not found")
)
