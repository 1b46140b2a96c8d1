package oracle

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region handler
// Handler implements the oracle service.
type Handler interface {
	Select(ctx context.Context, req SelectRequest) (SelectResponse, error)
	Observe(ctx context.Context, req ObserveRequest) (ObserveResponse, error)
}

// Register adds the oracle service to s.
func Register(s grpc.ServiceRegistrar, h Handler) {
	s.RegisterService(&serviceDesc, h)
}

// #endregion handler

// #region service-desc
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Select", Handler: selectHandler},
		{MethodName: "Observe", Handler: observeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "adaptivecontext/v1/oracle.proto",
}

func selectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unary(srv, ctx, dec, interceptor, SelectMethod, func(ctx context.Context, h Handler, in *structpb.Struct) (any, error) {
		var req SelectRequest
		if err := fromStruct(in, &req); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return h.Select(ctx, req)
	})
}

func observeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unary(srv, ctx, dec, interceptor, ObserveMethod, func(ctx context.Context, h Handler, in *structpb.Struct) (any, error) {
		var req ObserveRequest
		if err := fromStruct(in, &req); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return h.Observe(ctx, req)
	})
}

type callFunc func(ctx context.Context, h Handler, in *structpb.Struct) (any, error)

func unary(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor, method string, call callFunc) (any, error) {
	in := &structpb.Struct{}
	if err := dec(in); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		resp, err := call(ctx, srv.(Handler), req.(*structpb.Struct))
		if err != nil {
			return nil, toStatus(err)
		}
		out, err := toStruct(resp)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		return out, nil
	}
	if interceptor == nil {
		return run(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
	return interceptor(ctx, in, info, run)
}

// #endregion service-desc

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, ErrInvalidRequest) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
