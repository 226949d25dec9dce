package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/service"
	"github.com/vibast-solutions/ms-go-clover-pos/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const TerminalServiceName = "clover.v1.TerminalService"

// TerminalServer is the POS back-end view of the connector. Every message is a Struct.
type TerminalServer interface {
	Health(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Proxy(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetLatestResponse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	AwaitOperation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var TerminalServiceDesc = grpc.ServiceDesc{
	ServiceName: TerminalServiceName,
	HandlerType: (*TerminalServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unaryHandler("Health", TerminalServer.Health)},
		{MethodName: "Proxy", Handler: unaryHandler("Proxy", TerminalServer.Proxy)},
		{MethodName: "GetLatestResponse", Handler: unaryHandler("GetLatestResponse", TerminalServer.GetLatestResponse)},
		{MethodName: "AwaitOperation", Handler: unaryHandler("AwaitOperation", TerminalServer.AwaitOperation)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clover/v1/terminal.proto",
}

func RegisterTerminalServer(s grpc.ServiceRegistrar, srv TerminalServer) {
	s.RegisterService(&TerminalServiceDesc, srv)
}

func unaryHandler(method string, call func(TerminalServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TerminalServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + TerminalServiceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TerminalServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var _ TerminalServer = (*Server)(nil)

type Server struct {
	terminalService *service.TerminalService
}

func NewServer(terminalService *service.TerminalService) *Server {
	return &Server{terminalService: terminalService}
}

func (s *Server) Health(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{"status": "ok", "message": "Clover POS connector is running"})
}

func (s *Server) Proxy(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	req, err := types.NewProxyRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Proxy validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.terminalService.Proxy(ctx, req)
	if err != nil {
		return nil, serviceError(ctx, "Proxy Clover operation", err)
	}

	body, err := types.NewStructValueFromJSON(result.Body)
	if err != nil {
		l.WithError(err).Error("Proxy result is not JSON")
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"reference":   structpb.NewStringValue(result.Reference),
		"status_code": structpb.NewNumberValue(float64(result.StatusCode)),
		"body":        body,
	}}, nil
}

func (s *Server) GetLatestResponse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := types.NewPaymentMethodIDRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	latest, err := s.terminalService.LatestResponse(ctx, req.GetId())
	if err != nil {
		return nil, serviceError(ctx, "Get latest response", err)
	}

	value := structpb.NewBoolValue(false)
	if latest != nil {
		if value, err = types.NewStructValueFromJSON(latest); err != nil {
			return nil, status.Error(codes.Internal, "internal server error")
		}
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"latest_response": value}}, nil
}

func (s *Server) AwaitOperation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := types.NewOperationRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	timeout := time.Duration(req.GetTimeoutSeconds()) * time.Second
	payload, err := s.terminalService.AwaitOperation(ctx, req.GetPaymentMethodId(), req.GetReference(), timeout)
	if err != nil {
		return nil, serviceError(ctx, "Await operation", err)
	}

	response, err := types.NewStructValueFromJSON(payload)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"reference": structpb.NewStringValue(req.GetReference()),
		"response":  response,
	}}, nil
}

func serviceError(ctx context.Context, action string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrUnknownOperation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrConfiguration):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrPaymentMethodNotFound):
		return status.Error(codes.NotFound, "payment method not found")
	case errors.Is(err, service.ErrOperationNotFound):
		return status.Error(codes.NotFound, "operation not found")
	case errors.Is(err, service.ErrDeviceBusy):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrAwaitTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		loggerWithContext(ctx).WithError(err).Error(action + " failed")
		return status.Error(codes.Internal, "internal server error")
	}
}
