package oracle

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// Client calls a remote decision oracle.
type Client struct {
	conn    *grpc.ClientConn
	cc      grpc.ClientConnInterface
	learner string
}

// #endregion client-struct

// #region constructor
// NewClient creates a lazily-connecting client for addr. No I/O happens until
// the first call.
func NewClient(addr, learner string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn, learner: learner}, nil
}

// NewClientWithConn creates a Client over an injected connection.
// Used for testing without a real gRPC server.
func NewClientWithConn(cc grpc.ClientConnInterface, learner string) *Client {
	return &Client{cc: cc, learner: learner}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if the client owns one.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region select
// Select asks the oracle to partition candidates. An empty learner defaults to
// the client's.
func (c *Client) Select(ctx context.Context, req SelectRequest) (SelectResponse, error) {
	if req.Learner == "" {
		req.Learner = c.learner
	}
	var resp SelectResponse
	if err := c.invoke(ctx, SelectMethod, req, &resp); err != nil {
		return SelectResponse{}, fmt.Errorf("select rpc: %w", err)
	}
	return resp, nil
}

// #endregion select

// #region observe
// Observe reports one arm's reward to the oracle.
func (c *Client) Observe(ctx context.Context, req ObserveRequest) (ObserveResponse, error) {
	if req.Learner == "" {
		req.Learner = c.learner
	}
	var resp ObserveResponse
	if err := c.invoke(ctx, ObserveMethod, req, &resp); err != nil {
		return ObserveResponse{}, fmt.Errorf("observe rpc: %w", err)
	}
	return resp, nil
}

// #endregion observe

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return err
	}
	return fromStruct(out, resp)
}
