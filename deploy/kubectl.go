package deploy

import (
	"github.com/initializ/pipeline-runner/container"
	"github.com/initializ/pipeline-runner/types"
)

// Kubectl updates a Kubernetes deployment with kubectl set image. The
// environment's deployment target is used as the namespace.
type Kubectl struct {
	Deployment string
	Container  string
}

// NewKubectl returns a Kubectl updater for a deployment and container both
// named after app.
func NewKubectl(app string) *Kubectl {
	return &Kubectl{Deployment: app, Container: app}
}

func (k *Kubectl) UpdateCommand(image string, env types.Environment) string {
	deployment := k.Deployment
	if deployment == "" {
		deployment = types.DefaultApp
	}
	name := k.Container
	if name == "" {
		name = deployment
	}
	return container.Join(
		"kubectl", "set", "image",
		"deployment/"+deployment,
		name+"="+image,
		"--namespace="+env.DeploymentTarget,
	)
}
