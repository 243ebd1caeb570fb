package leak

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/test/bufconn"

	"sessionprobe/internal/client"
	"sessionprobe/internal/dummy"
	"sessionprobe/internal/recorder"
)

func newTestProber(t *testing.T, cfg Config) (*Prober, *dummy.Server, *recorder.Recorder) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := dummy.NewServer(dummy.ServerConfig{Log: zerolog.Nop()})
	gs := srv.Serve(lis)
	t.Cleanup(gs.Stop)

	c, err := client.DialContextDialer("passthrough:///bufnet", func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	rec := recorder.New()
	return New(cfg, c, rec, zerolog.Nop()), srv, rec
}

func TestRunProducesSeriesAndCleansUp(t *testing.T) {
	p, srv, rec := newTestProber(t, Config{
		Duration:    150 * time.Millisecond,
		Interval:    20 * time.Millisecond,
		BatchSize:   5,
		SampleLimit: 8,
		Cap:         12,
		Evict:       6,
	})

	series, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, series)

	for _, pt := range series {
		assert.LessOrEqual(t, pt.Tracked, 12+5, "population must stay near the cap")
		assert.False(t, pt.At.IsZero())
	}

	assert.Equal(t, 0, srv.Count(), "final cleanup deletes everything tracked")
	assert.Greater(t, rec.Count(recorder.KindSet), 0)
	assert.Greater(t, rec.Count(recorder.KindGet), 0)
}

func TestRunStopsAtDeadline(t *testing.T) {
	p, _, _ := newTestProber(t, Config{
		Duration:    60 * time.Millisecond,
		Interval:    20 * time.Millisecond,
		BatchSize:   2,
		SampleLimit: 2,
		Cap:         50,
		Evict:       5,
	})

	start := time.Now()
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	// One in-flight checkpoint may finish past the deadline, but the loop
	// must not schedule another full interval beyond it.
	assert.Less(t, time.Since(start), time.Second)
}

func TestCancelMidRunStillCleansUp(t *testing.T) {
	p, srv, _ := newTestProber(t, Config{
		Duration:  time.Hour,
		Interval:  time.Hour,
		BatchSize: 5,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type runOut struct {
		series []Point
		err    error
	}
	done := make(chan runOut, 1)
	go func() {
		series, err := p.Run(ctx)
		done <- runOut{series, err}
	}()

	// Let the first checkpoint land its batch, then pull the plug while
	// the prober sits in its interval wait.
	require.Eventually(t, func() bool { return srv.Count() == 5 },
		5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case out := <-done:
		require.NoError(t, out.err)
		require.NotEmpty(t, out.series)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	assert.Equal(t, 0, srv.Count(), "cancel must not leave sessions on the service")
}

func TestRunHonorsCancellation(t *testing.T) {
	p, srv, _ := newTestProber(t, Config{
		Duration:  time.Hour,
		Interval:  time.Hour,
		BatchSize: 3,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	series, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, series, 1, "cancelled run still finishes its checkpoint")
	assert.Equal(t, 0, srv.Count())
}
