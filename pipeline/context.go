package pipeline

import "github.com/initializ/pipeline-runner/types"

// CellContext carries the state of one matrix cell through its stages.
type CellContext struct {
	Cell types.Cell
	Tag  string

	Artifact    types.ArtifactID // set by BuildStage
	Environment string           // set by DeployStage
	Skipped     bool
}

// NewCellContext creates the context for one cell.
func NewCellContext(cell types.Cell, tag string) *CellContext {
	return &CellContext{Cell: cell, Tag: tag}
}

// Skip marks the cell as finished without deployment to env.
func (cc *CellContext) Skip(env string) {
	cc.Environment = env
	cc.Skipped = true
}
