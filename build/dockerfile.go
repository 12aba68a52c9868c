// Package build renders the per-cell Dockerfile and builds the image.
package build

import (
	"bytes"
	"fmt"
	"regexp"
	"text/template"

	"github.com/initializ/pipeline-runner/templates"
	"github.com/initializ/pipeline-runner/types"
)

// DefaultDockerfile is the file the rendered Dockerfile is written to when
// cells are built one at a time.
const DefaultDockerfile = "Dockerfile.generated"

// AppPort is the port the generated image exposes.
const AppPort = 5000

type dockerfileData struct {
	Base    string
	Version string
	Alpine  bool
	Port    int
}

// RenderDockerfile renders the Dockerfile for one matrix cell. Only the
// dependency install line depends on the base image family.
func RenderDockerfile(version string, base types.BaseImage) ([]byte, error) {
	tmplData, err := templates.FS.ReadFile("Dockerfile.tmpl")
	if err != nil {
		return nil, fmt.Errorf("reading Dockerfile template: %w", err)
	}

	tmpl, err := template.New("Dockerfile").Parse(string(tmplData))
	if err != nil {
		return nil, fmt.Errorf("parsing Dockerfile template: %w", err)
	}

	data := dockerfileData{
		Base:    base.Name,
		Version: version,
		Alpine:  base.Family == types.FamilyAlpine,
		Port:    AppPort,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering Dockerfile: %w", err)
	}
	return buf.Bytes(), nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// CellDockerfile returns the per-cell Dockerfile name used when cells are
// built concurrently, e.g. Dockerfile.3.11_python-slim.generated.
func CellDockerfile(version, base string) string {
	return "Dockerfile." + unsafeNameChars.ReplaceAllString(version+"_"+base, "-") + ".generated"
}
