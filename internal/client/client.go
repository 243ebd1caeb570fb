// Package client is the thin adapter over the session service RPC contract.
//
// Every method returns one uniform Status shape: logical failures (non-zero
// result codes) and transport failures land in the same place, so the
// engines upstream have exactly one failure-handling path and never see an
// exception-style error from an RPC.
package client

import (
	"context"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"sessionprobe/internal/wire"
)

// CodeTransport is the sentinel for transport-level failures that carry no
// gRPC status of their own.
const CodeTransport int32 = -1

// Status is the normalized outcome of any session RPC.
type Status struct {
	Code int32
	Msg  string
}

// OK reports whether the operation succeeded (service code 0).
func (s Status) OK() bool { return s.Code == 0 }

var statusOK = Status{}

// normalize collapses an RPC error into a Status. A gRPC status error keeps
// its own code; anything else becomes CodeTransport.
func normalize(err error) Status {
	if st, ok := status.FromError(err); ok {
		return Status{Code: int32(st.Code()), Msg: st.Message()}
	}
	return Status{Code: CodeTransport, Msg: err.Error()}
}

// Client wraps a single connection to the session service. It is safe for
// concurrent use; the stress engines still give each simulated client its
// own Client so contention happens at the service, not in the harness.
type Client struct {
	conn *grpc.ClientConn

	// Last session id returned by a successful Set. Best-effort
	// convenience only; the service remains the source of truth.
	mu      sync.Mutex
	current string
}

// Dial connects to the session service at target.
func Dial(target string) (*Client, error) {
	return dial(target)
}

// DialContextDialer connects through a custom dialer, which is how tests
// reach an in-memory bufconn listener.
func DialContextDialer(target string, dialer func(context.Context, string) (net.Conn, error)) (*Client, error) {
	return dial(target, grpc.WithContextDialer(dialer))
}

func dial(target string, extra ...grpc.DialOption) (*Client, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wire.Codec{})),
	}, extra...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Ping reports service availability. Availability is signalled solely by
// the call succeeding; there is no payload to inspect.
func (c *Client) Ping(ctx context.Context) bool {
	var out wire.Pong
	err := c.conn.Invoke(ctx, wire.MethodPing, &wire.PingRequest{}, &out)
	return err == nil
}

// Set creates (or attaches) a session for uid and returns the assigned id.
func (c *Client) Set(ctx context.Context, uid int64) (Status, string) {
	var out wire.SetResponse
	if err := c.conn.Invoke(ctx, wire.MethodSet, &wire.SetRequest{UID: uid}, &out); err != nil {
		return normalize(err), ""
	}
	if out.Result.Code != 0 {
		return Status{Code: out.Result.Code, Msg: out.Result.Msg}, ""
	}
	c.mu.Lock()
	c.current = out.Session
	c.mu.Unlock()
	return statusOK, out.Session
}

// Get fetches the uid owning a session id.
func (c *Client) Get(ctx context.Context, session string) (Status, int64) {
	var out wire.GetResponse
	if err := c.conn.Invoke(ctx, wire.MethodGet, &wire.GetRequest{Session: session}, &out); err != nil {
		return normalize(err), 0
	}
	if out.Result.Code != 0 {
		return Status{Code: out.Result.Code, Msg: out.Result.Msg}, 0
	}
	return statusOK, out.UID
}

// Del removes a session id.
func (c *Client) Del(ctx context.Context, session string) Status {
	var out wire.DelResponse
	if err := c.conn.Invoke(ctx, wire.MethodDel, &wire.DelRequest{Session: session}, &out); err != nil {
		return normalize(err)
	}
	if out.Result.Code == 0 {
		c.mu.Lock()
		if session == c.current {
			c.current = ""
		}
		c.mu.Unlock()
	}
	return Status{Code: out.Result.Code, Msg: out.Result.Msg}
}

// Reload asks the service to reload its configuration.
func (c *Client) Reload(ctx context.Context) Status {
	var out wire.ReloadResponse
	if err := c.conn.Invoke(ctx, wire.MethodReload, &wire.ReloadRequest{}, &out); err != nil {
		return normalize(err)
	}
	return Status{Code: out.Result.Code, Msg: out.Result.Msg}
}

// Current returns the last session id a successful Set produced, if any.
func (c *Client) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
