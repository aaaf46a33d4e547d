package rpcapi

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/advisor"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// Client wraps a gRPC connection to the advisory service.
type Client struct {
	conn   *grpc.ClientConn
	invoke grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to the advisory gRPC server.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, invoke: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection.
// Used for testing without a real network listener.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{invoke: cc}
}

// Close shuts down the gRPC connection if the client owns one.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region advise
// Advise asks the server for advice on req.
func (c *Client) Advise(ctx context.Context, req advisor.Request) (advisor.Advice, error) {
	in, err := RequestToStruct(req)
	if err != nil {
		return advisor.Advice{}, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.invoke.Invoke(ctx, adviseMethod, in, out); err != nil {
		return advisor.Advice{}, fmt.Errorf("advise rpc: %w", err)
	}
	return StructToAdvice(out)
}

// Ready reports whether the server's advisory service is SERVING.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	resp, err := healthpb.NewHealthClient(c.invoke).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, fmt.Errorf("health rpc: %w", err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// #endregion advise
