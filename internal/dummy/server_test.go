package dummy

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionprobe/internal/wire"
)

func TestLifecycle(t *testing.T) {
	s := NewServer(ServerConfig{Log: zerolog.Nop()})
	ctx := context.Background()

	set, err := s.Set(ctx, &wire.SetRequest{UID: 42})
	require.NoError(t, err)
	require.Equal(t, int32(0), set.Result.Code)
	assert.Len(t, set.Session, 32, "ids are 16 random bytes, hex encoded")
	assert.Equal(t, 1, s.Count())

	got, err := s.Get(ctx, &wire.GetRequest{Session: set.Session})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.UID)

	del, err := s.Del(ctx, &wire.DelRequest{Session: set.Session})
	require.NoError(t, err)
	assert.Equal(t, int32(0), del.Result.Code)
	assert.Equal(t, 0, s.Count())

	got, err = s.Get(ctx, &wire.GetRequest{Session: set.Session})
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.Result.Code)
	assert.Equal(t, "session not found", got.Result.Msg)
}

func TestDelUnknownIDSucceeds(t *testing.T) {
	s := NewServer(ServerConfig{Log: zerolog.Nop()})

	del, err := s.Del(context.Background(), &wire.DelRequest{Session: "nope"})
	require.NoError(t, err)
	assert.Equal(t, int32(0), del.Result.Code)
}

func TestStaleReads(t *testing.T) {
	s := NewServer(ServerConfig{StaleReads: true, Log: zerolog.Nop()})
	ctx := context.Background()

	set, err := s.Set(ctx, &wire.SetRequest{UID: 7})
	require.NoError(t, err)
	_, err = s.Del(ctx, &wire.DelRequest{Session: set.Session})
	require.NoError(t, err)

	got, err := s.Get(ctx, &wire.GetRequest{Session: set.Session})
	require.NoError(t, err)
	assert.Equal(t, int32(0), got.Result.Code, "stale read keeps answering")
	assert.Equal(t, int64(7), got.UID)
}

func TestFailRateOne(t *testing.T) {
	s := NewServer(ServerConfig{FailRate: 1.0, Log: zerolog.Nop()})

	set, err := s.Set(context.Background(), &wire.SetRequest{UID: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(2), set.Result.Code)
	assert.Equal(t, 0, s.Count())
}
