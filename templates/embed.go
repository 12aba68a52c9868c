// Package templates provides embedded template files for pipeline-runner.
package templates

import "embed"

//go:embed Dockerfile.tmpl Jenkinsfile.tmpl
var FS embed.FS
