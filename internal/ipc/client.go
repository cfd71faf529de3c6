package ipc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ErrNotListening reports that nothing accepted the connection: the socket
// is missing, stale, or its owner has exited.
var ErrNotListening = errors.New("no viva session is listening")

func dial(path string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		"unix://"+path,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	return conn, nil
}

// Send performs one control roundtrip with a deadline.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	conn, err := dial(path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var resp Response
	err = conn.Invoke(ctx, handleMethod, &req, &resp, grpc.CallContentSubtype(codecName))
	if err != nil {
		return Response{}, classify(err)
	}
	return resp, nil
}

// Probe checks whether a responsive owner is currently listening on path.
// A missing or refused socket is (false, nil); a socket that accepts but
// never answers is an error.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	conn, err := dial(path)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: serviceName})
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrNotListening) {
			return false, nil
		}
		return false, fmt.Errorf("probe socket: %w", err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

func classify(err error) error {
	if status.Code(err) == codes.Unavailable {
		return fmt.Errorf("%w: %v", ErrNotListening, status.Convert(err).Message())
	}
	return err
}
