package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/initializ/pipeline-runner/pipeline"
	"github.com/initializ/pipeline-runner/shell"
	"github.com/initializ/pipeline-runner/types"
)

const (
	markRun  = "→"
	markOK   = "✓"
	markFail = "✗"
	markSkip = "–"
)

// Reporter narrates commands and pipeline progress to a writer. It
// implements shell.Narrator and pipeline.Observer and is safe for use from
// several goroutines.
type Reporter struct {
	mu      sync.Mutex
	out     io.Writer
	styles  *StyleSet
	verbose bool
}

// NewReporter creates a Reporter writing to w. Colors are dropped when w is
// not a terminal. With verbose set, command output is echoed.
func NewReporter(w io.Writer, theme TermTheme, verbose bool) *Reporter {
	return &Reporter{
		out:     w,
		styles:  NewStyleSet(theme, lipgloss.NewRenderer(w)),
		verbose: verbose,
	}
}

func (r *Reporter) line(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *Reporter) CommandStarted(commandLine string) {
	r.line("%s %s", r.styles.AccentTxt.Render(markRun+" Running:"), commandLine)
}

func (r *Reporter) CommandSucceeded(_ string, stdout string) {
	r.line("%s", r.styles.SuccessTxt.Render(markOK+" Success"))
	if r.verbose {
		r.block(stdout)
	}
}

func (r *Reporter) CommandFailed(_ string, stderr string) {
	r.line("%s", r.styles.ErrorTxt.Render(markFail+" Error"))
	r.block(stderr)
}

// block echoes captured output, indented.
func (r *Reporter) block(text string) {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return
	}
	var b strings.Builder
	for _, l := range strings.Split(text, "\n") {
		b.WriteString("    ")
		b.WriteString(r.styles.DimTxt.Render(l))
		b.WriteString("\n")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.out, b.String())
}

func (r *Reporter) PipelineStarted(name string, cells int) {
	r.line("%s %s", r.styles.Title.Render("Starting pipeline:"), name)
	r.line("%s", r.styles.SecondaryTxt.Render(fmt.Sprintf("  %d matrix cell(s)", cells)))
}

func (r *Reporter) CellStarted(cell types.Cell) {
	r.line("%s", r.styles.Title.Render(fmt.Sprintf("Building with Python %s on %s", cell.Version, cell.Base.Name)))
}

func (r *Reporter) CellSkipped(_ types.Cell, artifact types.ArtifactID, environment string) {
	r.line("%s", r.styles.WarningTxt.Render(fmt.Sprintf("%s Skipping deployment of %s: environment %q not configured", markSkip, artifact, environment)))
}

func (r *Reporter) CellDeployed(_ types.Cell, artifact types.ArtifactID, environment string) {
	r.Deployed(artifact, environment)
}

// CellFailed names the failing command without repeating its stderr,
// which CommandFailed already printed.
func (r *Reporter) CellFailed(cell types.Cell, err error) {
	r.line("%s", r.styles.ErrorTxt.Render(fmt.Sprintf("%s Cell %s failed: %s", markFail, cell, shell.Brief(err))))
}

func (r *Reporter) PipelineFinished(summary *pipeline.Summary, err error) {
	if summary != nil && len(summary.Cells) > 0 {
		r.summary(summary)
	}
	if err != nil {
		r.line("%s", r.styles.ErrorTxt.Render(markFail+" Pipeline failed"))
		return
	}
	r.line("%s", r.styles.SuccessTxt.Render(markOK+" Pipeline completed successfully!"))
}

func (r *Reporter) summary(s *pipeline.Summary) {
	width := 0
	for _, c := range s.Cells {
		width = max(width, len(c.Cell.String()))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", r.styles.Title.Render("Summary"))
	for _, c := range s.Cells {
		key := fmt.Sprintf("  %-*s  ", width, c.Cell.String())
		value := c.Outcome.String()
		if c.Environment != "" {
			value += " (" + c.Environment + ")"
		}
		style := r.styles.SummaryValue
		switch c.Outcome {
		case pipeline.OutcomeFailed:
			style = r.styles.ErrorTxt
		case pipeline.OutcomeSkipped:
			style = r.styles.WarningTxt
		}
		b.WriteString(r.styles.SummaryKey.Render(key) + style.Render(value) + "\n")
	}
	if n := s.Total - len(s.Cells); n > 0 {
		fmt.Fprintf(&b, "%s\n", r.styles.DimTxt.Render(fmt.Sprintf("  %d cell(s) not started", n)))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.out, b.String())
}

// Report shows a saved run: its header, the per-cell table and the final
// status.
func (r *Reporter) Report(rr *pipeline.RunReport) {
	r.line("%s %s", r.styles.Title.Render("Pipeline run:"), rr.Pipeline)
	r.line("%s", r.styles.SecondaryTxt.Render(fmt.Sprintf("  %s, tag %s, %s to %s", rr.Builder, rr.Tag, rr.StartedAt, rr.FinishedAt)))
	r.PipelineFinished(rr.Summary(), rr.Err())
}

// Built reports a finished standalone build.
func (r *Reporter) Built(artifact types.ArtifactID) {
	r.line("%s %s", r.styles.SuccessTxt.Render(markOK+" Built image:"), artifact)
}

// Validated reports a standalone image that passed tests and scan.
func (r *Reporter) Validated(artifact types.ArtifactID) {
	r.line("%s %s", r.styles.SuccessTxt.Render(markOK+" Validated image:"), artifact)
}

// Deploying reports the start of a deployment.
func (r *Reporter) Deploying(artifact types.ArtifactID, environment string) {
	r.line("%s", r.styles.Title.Render(fmt.Sprintf("Deploying %s to %s", artifact, environment)))
}

// Deployed reports a completed deployment.
func (r *Reporter) Deployed(artifact types.ArtifactID, environment string) {
	r.line("%s", r.styles.SuccessTxt.Render(fmt.Sprintf("%s Deployed %s to %s", markOK, artifact, environment)))
}

// Warning prints a non-fatal problem.
func (r *Reporter) Warning(msg string) {
	r.line("%s %s", r.styles.WarningTxt.Render("WARNING:"), msg)
}

// Error prints a fatal problem.
func (r *Reporter) Error(msg string) {
	r.line("%s %s", r.styles.ErrorTxt.Render("ERROR:"), msg)
}

// Success prints a one-line success message.
func (r *Reporter) Success(msg string) {
	r.line("%s", r.styles.SuccessTxt.Render(markOK+" "+msg))
}
