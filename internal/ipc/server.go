package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	serviceName  = "viva.Control"
	handleMethod = "/viva.Control/Handle"
)

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

var controlServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Handle", Handler: handleUnary},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "viva/control",
}

func handleUnary(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		resp := srv.(Handler).Handle(ctx, *req.(*Request))
		return &resp, nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: handleMethod}
	return interceptor(ctx, in, info, call)
}

// Serve runs the control and health services on listener until ctx is
// cancelled. In-flight commands are allowed to finish.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	srv := grpc.NewServer()
	srv.RegisterService(&controlServiceDesc, handler)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthSrv)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			healthSrv.Shutdown()
			srv.GracefulStop()
		case <-done:
		}
	}()

	if err := srv.Serve(listener); err != nil {
		if errors.Is(err, grpc.ErrServerStopped) || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("serve IPC: %w", err)
	}
	return nil
}
