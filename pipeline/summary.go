package pipeline

import "github.com/initializ/pipeline-runner/types"

// Outcome is how a matrix cell finished.
type Outcome int

const (
	OutcomeDeployed Outcome = iota + 1
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDeployed:
		return "deployed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseOutcome maps an Outcome's String form back to the Outcome. Unknown
// names give the zero Outcome.
func ParseOutcome(s string) Outcome {
	for _, o := range []Outcome{OutcomeDeployed, OutcomeSkipped, OutcomeFailed} {
		if o.String() == s {
			return o
		}
	}
	return 0
}

// CellResult is the outcome of one attempted cell.
type CellResult struct {
	Cell        types.Cell
	Artifact    types.ArtifactID
	Environment string
	Outcome     Outcome
	Err         error
}

// Summary lists the attempted cells in matrix order. Cells that never
// started because the run aborted are absent.
type Summary struct {
	Name  string
	Total int
	Cells []CellResult
}

// Count returns the number of cells with outcome o.
func (s *Summary) Count(o Outcome) int {
	n := 0
	for _, c := range s.Cells {
		if c.Outcome == o {
			n++
		}
	}
	return n
}

// Observer is told about pipeline progress. Calls may come from several
// goroutines when cells run in parallel.
type Observer interface {
	PipelineStarted(name string, cells int)
	CellStarted(cell types.Cell)
	CellSkipped(cell types.Cell, artifact types.ArtifactID, environment string)
	CellDeployed(cell types.Cell, artifact types.ArtifactID, environment string)
	CellFailed(cell types.Cell, err error)
	PipelineFinished(summary *Summary, err error)
}

type nopObserver struct{}

func (nopObserver) PipelineStarted(string, int)                       {}
func (nopObserver) CellStarted(types.Cell)                            {}
func (nopObserver) CellSkipped(types.Cell, types.ArtifactID, string)  {}
func (nopObserver) CellDeployed(types.Cell, types.ArtifactID, string) {}
func (nopObserver) CellFailed(types.Cell, error)                      {}
func (nopObserver) PipelineFinished(*Summary, error)                  {}
