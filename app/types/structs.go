package types

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// gRPC messages are google.protobuf.Struct values keyed like the JSON bodies.

func NewProxyRequestFromStruct(in *structpb.Struct) (*ProxyRequest, error) {
	id, err := structUint64(in, "payment_method_id")
	if err != nil {
		return nil, err
	}
	orderID, err := structUint64(in, "pos_order_id")
	if err != nil {
		return nil, err
	}
	paymentID, err := structUint64(in, "pos_payment_id")
	if err != nil {
		return nil, err
	}

	req := &ProxyRequest{
		PaymentMethodId: id,
		Operation:       strings.ToLower(strings.TrimSpace(structString(in, "operation"))),
		PosOrderId:      orderID,
		PosPaymentId:    paymentID,
	}
	if v, ok := in.GetFields()["data"]; ok {
		if _, isNull := v.GetKind().(*structpb.Value_NullValue); !isNull {
			data, err := v.MarshalJSON()
			if err != nil {
				return nil, err
			}
			req.Data = data
		}
	}
	return req, nil
}

func NewPaymentMethodIDRequestFromStruct(in *structpb.Struct) (*PaymentMethodIDRequest, error) {
	id, err := structUint64(in, "payment_method_id")
	if err != nil {
		return nil, err
	}
	return &PaymentMethodIDRequest{Id: id}, nil
}

func NewOperationRequestFromStruct(in *structpb.Struct) (*OperationRequest, error) {
	id, err := structUint64(in, "payment_method_id")
	if err != nil {
		return nil, err
	}
	timeout, err := structUint64(in, "timeout_seconds")
	if err != nil {
		return nil, err
	}
	if timeout > math.MaxInt32 {
		return nil, errors.New("timeout_seconds is too large")
	}

	return &OperationRequest{
		PaymentMethodId: id,
		Reference:       strings.TrimSpace(structString(in, "reference")),
		TimeoutSeconds:  int32(timeout),
	}, nil
}

// NewStructValueFromJSON converts any JSON document into a Struct value. Empty input is null.
func NewStructValueFromJSON(raw json.RawMessage) (*structpb.Value, error) {
	if len(raw) == 0 {
		return structpb.NewNullValue(), nil
	}
	value := &structpb.Value{}
	if err := value.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return value, nil
}

func structString(in *structpb.Struct, key string) string {
	v, ok := in.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func structUint64(in *structpb.Struct, key string) (uint64, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, nil
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n < 0 || n != math.Trunc(n) || n > 1<<53 {
			return 0, errors.New("invalid " + key)
		}
		return uint64(n), nil
	default:
		return 0, errors.New(key + " must be a number")
	}
}
