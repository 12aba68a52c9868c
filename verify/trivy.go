package verify

import (
	"github.com/initializ/pipeline-runner/container"
	"github.com/initializ/pipeline-runner/types"
)

// Trivy scans images with the aquasec/trivy container. The scan's pass or
// fail policy is Trivy's own. The building tool's API socket is mounted at
// the docker path inside the scanner, where Trivy looks for local images.
type Trivy struct {
	// Image is the scanner image. Defaults to types.DefaultScannerImage.
	Image string
}

func (t *Trivy) ScanCommand(tool container.Tool, artifact types.ArtifactID) string {
	image := t.Image
	if image == "" {
		image = types.DefaultScannerImage
	}
	return tool.RunCommand(container.RunOptions{
		Image:   image,
		Volumes: []string{tool.Socket() + ":" + container.DockerSocket},
		Args:    []string{"image", artifact.String()},
	})
}
