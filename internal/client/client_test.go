package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"sessionprobe/internal/dummy"
)

func newTestClient(t *testing.T, cfg dummy.ServerConfig) *Client {
	t.Helper()
	cfg.Log = zerolog.Nop()

	lis := bufconn.Listen(1 << 20)
	srv := dummy.NewServer(cfg)
	gs := srv.Serve(lis)
	t.Cleanup(gs.Stop)

	c, err := DialContextDialer("passthrough:///bufnet", func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNormalize(t *testing.T) {
	st := normalize(status.Error(codes.Unavailable, "down"))
	assert.Equal(t, int32(codes.Unavailable), st.Code)
	assert.Equal(t, "down", st.Msg)
	assert.False(t, st.OK())

	// 2024-era grpc wraps everything in a status, so the transport sentinel
	// only fires for plain errors from dial helpers and the like.
	st = normalize(errRaw{})
	assert.Equal(t, CodeTransport, st.Code)
}

// errRaw is an error status.FromError cannot interpret.
type errRaw struct{}

func (errRaw) Error() string { return "raw failure" }

func TestSessionLifecycle(t *testing.T) {
	c := newTestClient(t, dummy.ServerConfig{})
	ctx := context.Background()

	assert.True(t, c.Ping(ctx))

	st, sid := c.Set(ctx, 123)
	require.True(t, st.OK())
	require.NotEmpty(t, sid)
	assert.Equal(t, sid, c.Current())

	st, uid := c.Get(ctx, sid)
	require.True(t, st.OK())
	assert.Equal(t, int64(123), uid)

	require.True(t, c.Del(ctx, sid).OK())
	assert.Empty(t, c.Current(), "delete of the cached id clears it")

	st, _ = c.Get(ctx, sid)
	assert.Equal(t, int32(1), st.Code, "deleted session should be gone")
}

func TestDelIsIdempotent(t *testing.T) {
	c := newTestClient(t, dummy.ServerConfig{})
	ctx := context.Background()

	assert.True(t, c.Del(ctx, "never-existed").OK())
}

func TestDelOtherIDKeepsCurrent(t *testing.T) {
	c := newTestClient(t, dummy.ServerConfig{})
	ctx := context.Background()

	_, first := c.Set(ctx, 1)
	_, second := c.Set(ctx, 2)
	require.NotEmpty(t, second)

	require.True(t, c.Del(ctx, first).OK())
	assert.Equal(t, second, c.Current())
}

func TestSetFailureSurfacesServiceCode(t *testing.T) {
	c := newTestClient(t, dummy.ServerConfig{FailRate: 1.0})
	ctx := context.Background()

	st, sid := c.Set(ctx, 99)
	assert.Equal(t, int32(2), st.Code)
	assert.Empty(t, sid)
	assert.Empty(t, c.Current(), "failed set must not cache an id")
}

func TestReload(t *testing.T) {
	c := newTestClient(t, dummy.ServerConfig{})
	assert.True(t, c.Reload(context.Background()).OK())
}

func TestTransportFailureIsStatusNotError(t *testing.T) {
	// Dial a listener that is already closed: calls fail at the transport,
	// and the failure must still arrive as a Status.
	lis := bufconn.Listen(1 << 20)
	lis.Close()

	c, err := DialContextDialer("passthrough:///bufnet", func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st, _ := c.Set(ctx, 1)
	assert.False(t, st.OK())
	assert.False(t, c.Ping(ctx))
}
