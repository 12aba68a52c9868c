package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/initializ/pipeline-runner/types"
)

// ReportVersion is the run report format written by WriteReport.
const ReportVersion = 1

// RunReport records the outcome of one pipeline run.
type RunReport struct {
	Version    int          `json:"version"`
	Pipeline   string       `json:"pipeline"`
	Builder    string       `json:"builder"`
	Tag        string       `json:"tag"`
	StartedAt  string       `json:"started_at"`
	FinishedAt string       `json:"finished_at"`
	Succeeded  bool         `json:"succeeded"`
	Error      string       `json:"error,omitempty"`
	Total      int          `json:"total_cells"`
	Cells      []CellReport `json:"cells"`
}

// CellReport is one attempted cell in a RunReport.
type CellReport struct {
	Version     string `json:"version"`
	BaseImage   string `json:"base_image"`
	Artifact    string `json:"artifact,omitempty"`
	Environment string `json:"environment,omitempty"`
	Outcome     string `json:"outcome"`
	Error       string `json:"error,omitempty"`
}

// NewRunReport builds a report from a run's summary and error.
func NewRunReport(summary *Summary, runErr error, builder, tag string, started, finished time.Time) *RunReport {
	r := &RunReport{
		Version:    ReportVersion,
		Builder:    builder,
		Tag:        tag,
		StartedAt:  started.UTC().Format(time.RFC3339),
		FinishedAt: finished.UTC().Format(time.RFC3339),
		Succeeded:  runErr == nil,
		Cells:      []CellReport{},
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	if summary == nil {
		return r
	}

	r.Pipeline = summary.Name
	r.Total = summary.Total
	for _, c := range summary.Cells {
		cr := CellReport{
			Version:     c.Cell.Version,
			BaseImage:   c.Cell.Base.Name,
			Artifact:    c.Artifact.String(),
			Environment: c.Environment,
			Outcome:     c.Outcome.String(),
		}
		if c.Err != nil {
			cr.Error = c.Err.Error()
		}
		r.Cells = append(r.Cells, cr)
	}
	return r
}

// Summary rebuilds the run's Summary so a saved report can be shown the
// same way as a live run.
func (r *RunReport) Summary() *Summary {
	s := &Summary{Name: r.Pipeline, Total: r.Total}
	for i, c := range r.Cells {
		res := CellResult{
			Cell:        types.Cell{Index: i, Version: c.Version, Base: types.NewBaseImage(c.BaseImage)},
			Artifact:    types.ArtifactID(c.Artifact),
			Environment: c.Environment,
			Outcome:     ParseOutcome(c.Outcome),
		}
		if c.Error != "" {
			res.Err = errors.New(c.Error)
		}
		s.Cells = append(s.Cells, res)
	}
	return s
}

// Err returns the recorded run error, or nil for a successful run.
func (r *RunReport) Err() error {
	switch {
	case r.Succeeded:
		return nil
	case r.Error != "":
		return errors.New(r.Error)
	default:
		return errors.New("run failed")
	}
}

// WriteReport writes the report as indented JSON. The file is replaced
// atomically so a reader never sees a partial report.
func WriteReport(path string, r *RunReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing run report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run report: %w", err)
	}
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing run report %s: %w", path, err)
	}
	if r.Version < 1 || r.Version > ReportVersion {
		return nil, fmt.Errorf("run report %s: unsupported version %d", path, r.Version)
	}
	return &r, nil
}
