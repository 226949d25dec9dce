package clover

import (
	"errors"
	"net/http"
	"strings"
)

var ErrUnknownOperation = errors.New("unknown operation")

type Operation string

const (
	OperationSale     Operation = "sale"
	OperationRefund   Operation = "refund"
	OperationVoid     Operation = "void"
	OperationCancel   Operation = "cancel"
	OperationStatus   Operation = "status"
	OperationWelcome  Operation = "welcome"
	OperationThankYou Operation = "thank_you"
)

type operationSpec struct {
	method  string
	suffix  string
	payment bool
}

var operations = map[Operation]operationSpec{
	OperationSale:     {method: http.MethodPost, suffix: "/sale", payment: true},
	OperationRefund:   {method: http.MethodPost, suffix: "/refund", payment: true},
	OperationVoid:     {method: http.MethodPost, suffix: "/void", payment: true},
	OperationCancel:   {method: http.MethodPost, suffix: "/cancel", payment: true},
	OperationStatus:   {method: http.MethodGet, suffix: ""},
	OperationWelcome:  {method: http.MethodPost, suffix: "/welcome"},
	OperationThankYou: {method: http.MethodPost, suffix: "/thank_you"},
}

func ParseOperation(raw string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := operations[op]; !ok {
		return "", ErrUnknownOperation
	}
	return op, nil
}

func (o Operation) String() string {
	return string(o)
}

func (o Operation) Method() string {
	return operations[o].method
}

// Path returns the device endpoint for the operation.
func (o Operation) Path(merchantID, deviceID string) string {
	return devicePath(merchantID, deviceID) + operations[o].suffix
}

// IsPayment reports whether the call uses the payment timeout.
func (o Operation) IsPayment() bool {
	return operations[o].payment
}

// HoldsDevice reports whether the operation keeps the terminal busy until Clover reports back.
func (o Operation) HoldsDevice() bool {
	return o == OperationSale || o == OperationRefund
}

func (o Operation) SendsBody() bool {
	return o.Method() != http.MethodGet
}
