// Package export renders a pipeline config's declared stages as a
// declarative Jenkinsfile.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/initializ/pipeline-runner/templates"
	"github.com/initializ/pipeline-runner/types"
)

// ExportValidation holds problems found before rendering.
type ExportValidation struct {
	Warnings []string
	Errors   []string
}

// ValidateForJenkins checks a config for issues specific to Jenkinsfile
// export.
func ValidateForJenkins(cfg *types.PipelineConfig) *ExportValidation {
	v := &ExportValidation{}

	if len(cfg.Stages) == 0 {
		v.Errors = append(v.Errors, "no stages declared; nothing to export")
	}
	for i, s := range cfg.Stages {
		if s.Name == "" {
			v.Errors = append(v.Errors, fmt.Sprintf("stages[%d]: name is required", i))
		}
		if len(s.Commands) == 0 {
			v.Warnings = append(v.Warnings, fmt.Sprintf("stage %q has no commands", s.Name))
		}
		if s.Parallel {
			v.Warnings = append(v.Warnings, fmt.Sprintf("stage %q: parallel is not rendered", s.Name))
		}
	}
	return v
}

// GroovyQuote escapes s for use inside a single-quoted Groovy string.
func GroovyQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`).Replace(s)
}

type jenkinsData struct {
	App      string
	Versions []string
	Stages   []types.Stage
}

// RenderJenkinsfile renders the declared stages. Versions become the
// PYTHON_VERSION choice parameter. A stage's when condition is copied
// into its when block as written.
func RenderJenkinsfile(cfg *types.PipelineConfig) ([]byte, error) {
	tmplData, err := templates.FS.ReadFile("Jenkinsfile.tmpl")
	if err != nil {
		return nil, fmt.Errorf("reading Jenkinsfile template: %w", err)
	}

	tmpl, err := template.New("Jenkinsfile").
		Funcs(template.FuncMap{"groovy": GroovyQuote}).
		Parse(string(tmplData))
	if err != nil {
		return nil, fmt.Errorf("parsing Jenkinsfile template: %w", err)
	}

	app := cfg.App
	if app == "" {
		app = types.DefaultApp
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, jenkinsData{App: app, Versions: cfg.Versions, Stages: cfg.Stages}); err != nil {
		return nil, fmt.Errorf("rendering Jenkinsfile: %w", err)
	}
	return buf.Bytes(), nil
}
