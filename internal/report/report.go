// Package report assembles and persists the terminal artifact of a
// diagnostic run: all recorded samples plus the analyzer's verdict.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"sessionprobe/internal/diag"
	"sessionprobe/internal/recorder"
)

// Report is one diagnostic run's artifact, keyed by its run timestamp.
type Report struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Target    string    `json:"target"`

	Latency     map[string][]float64 `json:"latency"`
	Errors      map[string][]string  `json:"errors"`
	SuccessRate map[string]float64   `json:"success_rate"`

	Verdict  string              `json:"verdict"`
	Evidence []diag.KindEvidence `json:"evidence"`
}

// Build snapshots a recorder and analysis into a finished report.
func Build(target string, rec *recorder.Recorder, a diag.Analysis) Report {
	r := Report{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		Target:      target,
		Latency:     make(map[string][]float64),
		Errors:      make(map[string][]string),
		SuccessRate: make(map[string]float64),
		Verdict:     string(a.Verdict),
		Evidence:    a.Evidence,
	}
	for _, kind := range recorder.Kinds {
		r.Latency[string(kind)] = rec.LatencySeconds(kind)
		r.Errors[string(kind)] = rec.Errors(kind)
		r.SuccessRate[string(kind)] = rec.SuccessRate(kind)
	}
	return r
}

// WriteJSON writes the report next to the process, named by run timestamp,
// and returns the filename.
func (r Report) WriteJSON(dir string) (string, error) {
	name := fmt.Sprintf("diagnostics_%s.json", r.Timestamp.Format("20060102_150405"))
	if dir != "" {
		name = filepath.Join(dir, name)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		return "", err
	}
	return name, nil
}
