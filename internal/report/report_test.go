package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionprobe/internal/diag"
	"sessionprobe/internal/recorder"
)

func sampleReport(t *testing.T) Report {
	t.Helper()

	rec := recorder.New()
	rec.Measure(recorder.KindPing, func() recorder.Outcome { return recorder.Outcome{OK: true} })
	rec.Measure(recorder.KindSet, func() recorder.Outcome { return recorder.Outcome{ErrMsg: "code 2: boom"} })

	a := diag.Analyze(diag.InputFromRecorder(rec))
	return Build("localhost:50051", rec, a)
}

func TestBuildCoversEveryKind(t *testing.T) {
	r := sampleReport(t)

	assert.NotEmpty(t, r.ID)
	assert.False(t, r.Timestamp.IsZero())
	assert.Equal(t, "localhost:50051", r.Target)
	assert.NotEmpty(t, r.Verdict)

	for _, kind := range recorder.Kinds {
		_, ok := r.Latency[string(kind)]
		assert.True(t, ok, string(kind))
		_, ok = r.SuccessRate[string(kind)]
		assert.True(t, ok, string(kind))
	}
	assert.Len(t, r.Errors["set"], 1)
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	r := sampleReport(t)

	name, err := r.WriteJSON(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(name))
	assert.Contains(t, filepath.Base(name), "diagnostics_")

	data, err := os.ReadFile(name)
	require.NoError(t, err)

	var back Report
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.ID, back.ID)
	assert.Equal(t, r.Verdict, back.Verdict)
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	r := sampleReport(t)
	require.NoError(t, store.Save(r))

	got, err := store.Get(r.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.Verdict, got.Verdict)

	_, err = store.Get(time.Unix(0, 0))
	assert.Error(t, err)
}

func TestStoreListNewestFirst(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	older := sampleReport(t)
	older.Timestamp = time.Now().Add(-time.Hour)
	newer := sampleReport(t)

	require.NoError(t, store.Save(older))
	require.NoError(t, store.Save(newer))

	items := store.List()
	require.Len(t, items, 2)
	assert.Equal(t, newer.ID, items[0].ID)
	assert.Equal(t, older.ID, items[1].ID)
}
