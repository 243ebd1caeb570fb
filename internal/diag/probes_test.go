package diag

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

func newProbeHarness(t *testing.T, cfg dummy.ServerConfig, pc ProbeConfig) (*Runner, *dummy.Server, *recorder.Recorder) {
	t.Helper()
	cfg.Log = zerolog.Nop()

	lis := bufconn.Listen(1 << 20)
	srv := dummy.NewServer(cfg)
	gs := srv.Serve(lis)
	t.Cleanup(gs.Stop)

	c, err := client.DialContextDialer("passthrough:///bufnet", func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	rec := recorder.New()
	return NewRunner(pc, c, rec, zerolog.Nop()), srv, rec
}

func TestRunAllAgainstHealthyService(t *testing.T) {
	pc := ProbeConfig{OperationCount: 10, ErrorIters: 5, Concurrency: 5}
	r, srv, rec := newProbeHarness(t, dummy.ServerConfig{}, pc)

	a := r.RunAll(context.Background())

	// A clean in-memory service still produces the expected error-probe
	// failures (unknown ids), but success rates for set/del stay perfect.
	assert.Equal(t, 1.0, rec.SuccessRate(recorder.KindSet))
	assert.Equal(t, 1.0, rec.SuccessRate(recorder.KindDel))
	assert.Less(t, rec.SuccessRate(recorder.KindGet), 1.0, "unknown-id probes must fail")

	assert.NotEmpty(t, a.Verdict)
	assert.Len(t, a.Evidence, len(recorder.Kinds))
	assert.Equal(t, 0, srv.Count(), "probes clean up every session they create")
}

func TestLatencyProbeCounts(t *testing.T) {
	pc := ProbeConfig{OperationCount: 8, ErrorIters: 1, Concurrency: 1}
	r, _, rec := newProbeHarness(t, dummy.ServerConfig{}, pc)

	r.RunLatencyProbe(context.Background())

	assert.Equal(t, 8, rec.Count(recorder.KindPing))
	assert.Equal(t, 8, rec.Count(recorder.KindSet))
	assert.Equal(t, 8, rec.Count(recorder.KindGet))
	assert.Equal(t, 8, rec.Count(recorder.KindDel))
}

func TestErrorPatternProbeRecordsFailures(t *testing.T) {
	pc := ProbeConfig{OperationCount: 1, ErrorIters: 6, Concurrency: 1}
	r, srv, rec := newProbeHarness(t, dummy.ServerConfig{}, pc)

	r.RunErrorPatternProbe(context.Background())

	// 6 unknown ids plus 6 special-character ids, all misses. The empty
	// session id marshals to an absent field, which is still a miss.
	assert.GreaterOrEqual(t, len(rec.Errors(recorder.KindGet)), 12)
	assert.Equal(t, 0, srv.Count())
}

func TestConcurrencyProbeCleansUp(t *testing.T) {
	pc := ProbeConfig{OperationCount: 1, ErrorIters: 1, Concurrency: 10}
	r, srv, rec := newProbeHarness(t, dummy.ServerConfig{}, pc)

	r.RunConcurrencyProbe(context.Background())

	assert.Equal(t, 10, rec.Count(recorder.KindSet))
	assert.Equal(t, 10, rec.Count(recorder.KindGet))
	assert.Equal(t, 0, srv.Count())
}

func TestRunAllFlagsSlowService(t *testing.T) {
	if testing.Short() {
		t.Skip("latency injection is slow by construction")
	}

	pc := ProbeConfig{OperationCount: 6, ErrorIters: 1, Concurrency: 2}
	r, _, _ := newProbeHarness(t, dummy.ServerConfig{
		MinDelay: 2 * time.Millisecond,
		MaxDelay: 4 * time.Millisecond,
	}, pc)

	a := r.RunAll(context.Background())

	// Milliseconds of injected delay is far below the half-second bar, so
	// the verdict logic must still land on a no-fault reading despite the
	// deliberate unknown-id errors.
	assert.False(t, a.HighLatency)
	assert.NotEmpty(t, a.Verdict)
}
