package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/initializ/pipeline-runner/pipeline"
	"github.com/initializ/pipeline-runner/shell"
	"github.com/initializ/pipeline-runner/types"
)

const testPipelineYAML = `
name: flask-ci
versions: ["3.11", "3.9"]
base_images: [python]
environments:
  production:
    registry: registry.example.com
  staging:
    registry: registry.example.com
stages:
  - name: Test
    commands: ["pytest"]
`

// setupCLI points the CLI globals at a temp workdir and a recording
// executor, restoring everything when the test ends.
func setupCLI(t *testing.T) (*shell.Recorder, string) {
	t.Helper()
	dir := t.TempDir()
	rec := shell.NewRecorder()

	oldExec := newExecutor
	oldWorkDir, oldBuilder, oldApp, oldTheme, oldVerbose := workDir, builderName, appName, themeOverride, verbose
	newExecutor = func(shell.Narrator) shell.Executor { return rec }
	workDir, builderName, appName, themeOverride, verbose = dir, "docker", "", "", false

	t.Cleanup(func() {
		newExecutor = oldExec
		workDir, builderName, appName, themeOverride, verbose = oldWorkDir, oldBuilder, oldApp, oldTheme, oldVerbose
	})
	return rec, dir
}

func testCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	c := &cobra.Command{}
	var out, errOut bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&errOut)
	c.SetContext(context.Background())
	return c, &out, &errOut
}

func writeTestConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing pipeline.yaml: %v", err)
	}
	return path
}

func setString(t *testing.T, target *string, value string) {
	t.Helper()
	old := *target
	*target = value
	t.Cleanup(func() { *target = old })
}

func TestRunBuild(t *testing.T) {
	rec, dir := setupCLI(t)
	setString(t, &buildVersion, "3.11")
	setString(t, &buildBaseImage, "python")
	setString(t, &buildTag, "latest")

	c, out, _ := testCommand()
	if err := runBuild(c, nil); err != nil {
		t.Fatalf("runBuild() error: %v", err)
	}

	want := []string{"docker build -f Dockerfile.generated -t flask-app:3.11_python-latest ."}
	if diff := cmp.Diff(want, rec.Commands()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), "flask-app:3.11_python-latest") {
		t.Errorf("output missing artifact, got:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "Dockerfile.generated")); err != nil {
		t.Errorf("Dockerfile not written to workdir: %v", err)
	}
}

func TestRunBuild_AppAndBuilderFlags(t *testing.T) {
	rec, _ := setupCLI(t)
	setString(t, &buildVersion, "3.10")
	setString(t, &buildBaseImage, "python-alpine")
	setString(t, &buildTag, "dev")
	appName = "orders"
	builderName = "podman"

	c, _, _ := testCommand()
	if err := runBuild(c, nil); err != nil {
		t.Fatalf("runBuild() error: %v", err)
	}
	want := []string{"podman build -f Dockerfile.generated -t orders:3.10_python-alpine-dev ."}
	if diff := cmp.Diff(want, rec.Commands()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestRunBuild_Failure(t *testing.T) {
	rec, _ := setupCLI(t)
	rec.FailOn("docker build", "daemon not running")
	setString(t, &buildVersion, "3.11")
	setString(t, &buildBaseImage, "python")
	setString(t, &buildTag, "latest")

	c, _, _ := testCommand()
	err := runBuild(c, nil)
	var execErr *shell.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("runBuild() error = %v, want *shell.ExecutionError", err)
	}
}

func TestRunBuild_UnknownBuilder(t *testing.T) {
	setupCLI(t)
	builderName = "kaniko"

	c, _, _ := testCommand()
	if err := runBuild(c, nil); err == nil {
		t.Fatal("expected error for unknown builder")
	}
}

func TestRunTest(t *testing.T) {
	rec, _ := setupCLI(t)
	setString(t, &testImage, "flask-app:3.11_python-latest")
	setString(t, &testCommandLine, types.DefaultTestCommand)
	setString(t, &testScannerImage, types.DefaultScannerImage)

	c, out, _ := testCommand()
	if err := runTest(c, nil); err != nil {
		t.Fatalf("runTest() error: %v", err)
	}

	want := []string{
		"docker run --rm flask-app:3.11_python-latest python -m pytest tests/ -v",
		"docker run --rm -v /var/run/docker.sock:/var/run/docker.sock aquasec/trivy:latest image flask-app:3.11_python-latest",
	}
	if diff := cmp.Diff(want, rec.Commands()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), "Validated image:") {
		t.Errorf("output missing validation notice, got:\n%s", out.String())
	}
}

func TestRunTest_MissingImage(t *testing.T) {
	setupCLI(t)
	setString(t, &testImage, "")

	c, _, _ := testCommand()
	if err := runTest(c, nil); err == nil {
		t.Fatal("expected error without --image")
	}
}

func TestRunDeploy_WithoutConfigFails(t *testing.T) {
	rec, _ := setupCLI(t)
	setString(t, &deployImage, "flask-app:3.9_python-latest")
	setString(t, &deployEnvironment, "staging")
	setString(t, &deployConfig, "")

	c, _, _ := testCommand()
	err := runDeploy(c, nil)

	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("runDeploy() error = %v, want *types.ConfigError", err)
	}
	if cfgErr.Environment != "staging" {
		t.Errorf("Environment = %q, want staging", cfgErr.Environment)
	}
	if n := len(rec.Commands()); n != 0 {
		t.Errorf("ran %d commands, want 0", n)
	}
}

func TestRunDeploy_WithConfig(t *testing.T) {
	rec, dir := setupCLI(t)
	setString(t, &deployImage, "flask-app:3.9_python-latest")
	setString(t, &deployEnvironment, "staging")
	setString(t, &deployConfig, writeTestConfig(t, dir, testPipelineYAML))

	c, out, _ := testCommand()
	if err := runDeploy(c, nil); err != nil {
		t.Fatalf("runDeploy() error: %v", err)
	}

	want := []string{
		"docker tag flask-app:3.9_python-latest registry.example.com/flask-app:3.9_python-latest",
		"docker push registry.example.com/flask-app:3.9_python-latest",
		"kubectl set image deployment/flask-app flask-app=registry.example.com/flask-app:3.9_python-latest --namespace=staging",
	}
	if diff := cmp.Diff(want, rec.Commands()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), "Deploying flask-app:3.9_python-latest to staging") {
		t.Errorf("output missing deploy notice, got:\n%s", out.String())
	}
}

func TestRunDeploy_UnknownEnvironmentInConfig(t *testing.T) {
	rec, dir := setupCLI(t)
	setString(t, &deployImage, "flask-app:3.9_python-latest")
	setString(t, &deployEnvironment, "qa")
	setString(t, &deployConfig, writeTestConfig(t, dir, testPipelineYAML))

	c, _, _ := testCommand()
	var cfgErr *types.ConfigError
	if err := runDeploy(c, nil); !errors.As(err, &cfgErr) {
		t.Fatalf("runDeploy() error = %v, want *types.ConfigError", err)
	}
	if n := len(rec.Commands()); n != 0 {
		t.Errorf("ran %d commands, want 0", n)
	}
}

func TestRunDeploy_InvalidConfigRunsNothing(t *testing.T) {
	rec, dir := setupCLI(t)
	setString(t, &deployImage, "flask-app:3.9_python-latest")
	setString(t, &deployEnvironment, "staging")
	setString(t, &deployConfig, writeTestConfig(t, dir, `
name: flask-ci
environments:
  staging:
    registry: ""
`))

	c, _, errOut := testCommand()
	err := runDeploy(c, nil)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Fatalf("runDeploy() error = %v, want config validation failure", err)
	}
	if !strings.Contains(errOut.String(), "environments.staging: registry is required") {
		t.Errorf("stderr missing validation error, got:\n%s", errOut.String())
	}
	if n := len(rec.Commands()); n != 0 {
		t.Errorf("ran %d commands, want 0: %v", n, rec.Commands())
	}
}

func TestReportError_LeavesOutNarratedStderr(t *testing.T) {
	var buf bytes.Buffer
	err := fmt.Errorf("deploy failed: %w", &shell.ExecutionError{
		Command: "docker push registry.example.com/app:1", ExitCode: 1, Stderr: "denied",
	})
	reportError(&buf, err)
	if !strings.Contains(buf.String(), "deploy failed: command failed (exit 1): docker push registry.example.com/app:1") {
		t.Errorf("output = %q", buf.String())
	}
	if strings.Contains(buf.String(), "denied") {
		t.Errorf("stderr repeated in final error: %q", buf.String())
	}
}

func setPipelineFlags(t *testing.T, cfgPath string, keepGoing bool, parallel int) {
	t.Helper()
	setString(t, &pipelineConfig, cfgPath)
	setString(t, &pipelineTag, "pipeline")
	setString(t, &pipelineReport, "")
	oldKeep, oldParallel := pipelineKeepGoing, pipelineParallel
	pipelineKeepGoing, pipelineParallel = keepGoing, parallel
	t.Cleanup(func() { pipelineKeepGoing, pipelineParallel = oldKeep, oldParallel })
}

func TestRunPipeline(t *testing.T) {
	rec, dir := setupCLI(t)
	setPipelineFlags(t, writeTestConfig(t, dir, testPipelineYAML), false, 1)

	c, out, _ := testCommand()
	if err := runPipeline(c, nil); err != nil {
		t.Fatalf("runPipeline() error: %v", err)
	}

	if n := rec.Count("docker build"); n != 2 {
		t.Errorf("builds = %d, want 2", n)
	}
	kubectl := []string{}
	for _, line := range rec.Commands() {
		if strings.HasPrefix(line, "kubectl") {
			kubectl = append(kubectl, line)
		}
	}
	want := []string{
		"kubectl set image deployment/flask-app flask-app=registry.example.com/flask-app:3.11_python-pipeline --namespace=production",
		"kubectl set image deployment/flask-app flask-app=registry.example.com/flask-app:3.9_python-pipeline --namespace=staging",
	}
	if diff := cmp.Diff(want, kubectl); diff != "" {
		t.Errorf("deployments mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), "Pipeline completed successfully!") {
		t.Errorf("output missing completion, got:\n%s", out.String())
	}
}

func TestRunPipeline_BuildFailureAborts(t *testing.T) {
	rec, dir := setupCLI(t)
	rec.FailOn("-t flask-app:3.11_python-pipeline", "build error")
	setPipelineFlags(t, writeTestConfig(t, dir, testPipelineYAML), false, 1)

	c, out, _ := testCommand()
	if err := runPipeline(c, nil); err == nil {
		t.Fatal("expected pipeline failure")
	}
	if n := len(rec.Commands()); n != 1 {
		t.Errorf("ran %d commands after failed build, want 1: %v", n, rec.Commands())
	}
	if !strings.Contains(out.String(), "Pipeline failed") {
		t.Errorf("output missing failure, got:\n%s", out.String())
	}
}

func TestRunPipeline_KeepGoing(t *testing.T) {
	rec, dir := setupCLI(t)
	rec.FailOn("-t flask-app:3.11_python-pipeline", "build error")
	setPipelineFlags(t, writeTestConfig(t, dir, testPipelineYAML), true, 1)

	c, _, _ := testCommand()
	if err := runPipeline(c, nil); err == nil {
		t.Fatal("expected pipeline failure")
	}
	if n := rec.Count("kubectl"); n != 1 {
		t.Errorf("deployments = %d, want 1 (3.9 only)", n)
	}
}

func TestRunPipeline_WritesReport(t *testing.T) {
	rec, dir := setupCLI(t)
	rec.FailOn("-t flask-app:3.9_python-pipeline", "build error")
	setPipelineFlags(t, writeTestConfig(t, dir, testPipelineYAML), false, 1)
	reportPath := filepath.Join(dir, "report.json")
	setString(t, &pipelineReport, reportPath)

	c, _, _ := testCommand()
	if err := runPipeline(c, nil); err == nil {
		t.Fatal("expected pipeline failure")
	}

	report, err := pipeline.ReadReport(reportPath)
	if err != nil {
		t.Fatalf("ReadReport() error: %v", err)
	}
	if report.Succeeded || report.Pipeline != "flask-ci" || report.Builder != "docker" {
		t.Errorf("report header = %+v", report)
	}
	var outcomes []string
	for _, cell := range report.Cells {
		outcomes = append(outcomes, cell.Version+"="+cell.Outcome)
	}
	if diff := cmp.Diff([]string{"3.11=deployed", "3.9=failed"}, outcomes); diff != "" {
		t.Errorf("report cells mismatch (-want +got):\n%s", diff)
	}
}

func TestRunReport(t *testing.T) {
	rec, dir := setupCLI(t)
	setPipelineFlags(t, writeTestConfig(t, dir, testPipelineYAML), false, 1)
	reportPath := filepath.Join(dir, "report.json")
	setString(t, &pipelineReport, reportPath)

	c, _, _ := testCommand()
	if err := runPipeline(c, nil); err != nil {
		t.Fatalf("runPipeline() error: %v", err)
	}

	c, out, _ := testCommand()
	if err := runReport(c, []string{reportPath}); err != nil {
		t.Fatalf("runReport() error: %v", err)
	}
	for _, want := range []string{"Pipeline run:", "flask-ci", "3.11/python", "deployed (production)", "Pipeline completed successfully!"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q, got:\n%s", want, out.String())
		}
	}

	rec.FailOn("-t flask-app:3.9_python-pipeline", "build error")
	c, _, _ = testCommand()
	if err := runPipeline(c, nil); err == nil {
		t.Fatal("expected pipeline failure")
	}

	c, out, _ = testCommand()
	err := runReport(c, []string{reportPath})
	if err == nil || !strings.Contains(err.Error(), "recorded run of flask-ci failed") {
		t.Fatalf("runReport() error = %v, want recorded failure", err)
	}
	if !strings.Contains(out.String(), "Pipeline failed") {
		t.Errorf("output missing failure, got:\n%s", out.String())
	}
}

func TestRunReport_MissingFile(t *testing.T) {
	setupCLI(t)
	c, _, _ := testCommand()
	if err := runReport(c, []string{filepath.Join(t.TempDir(), "none.json")}); err == nil {
		t.Fatal("expected error for missing report")
	}
}

func TestRunPipeline_ParallelUsesPerCellDockerfiles(t *testing.T) {
	rec, dir := setupCLI(t)
	setPipelineFlags(t, writeTestConfig(t, dir, testPipelineYAML), false, 2)

	c, _, _ := testCommand()
	if err := runPipeline(c, nil); err != nil {
		t.Fatalf("runPipeline() error: %v", err)
	}
	for _, name := range []string{"Dockerfile.3.11_python.generated", "Dockerfile.3.9_python.generated"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
		if rec.Count("-f "+name) != 1 {
			t.Errorf("no build used %s: %v", name, rec.Commands())
		}
	}
}

func TestRunPipeline_InvalidParallel(t *testing.T) {
	_, dir := setupCLI(t)
	setPipelineFlags(t, writeTestConfig(t, dir, testPipelineYAML), false, 0)

	c, _, _ := testCommand()
	if err := runPipeline(c, nil); err == nil {
		t.Fatal("expected error for --parallel 0")
	}
}

func TestRunPipeline_InvalidConfig(t *testing.T) {
	rec, dir := setupCLI(t)
	setPipelineFlags(t, writeTestConfig(t, dir, `
name: broken
versions: ["3.11"]
base_images: [python]
environments:
  production:
    registry: ""
`), false, 1)

	c, _, errOut := testCommand()
	if err := runPipeline(c, nil); err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(errOut.String(), "registry is required") {
		t.Errorf("stderr missing validation error, got:\n%s", errOut.String())
	}
	if n := len(rec.Commands()); n != 0 {
		t.Errorf("ran %d commands for invalid config, want 0", n)
	}
}

func TestRunPipeline_MissingConfig(t *testing.T) {
	_, dir := setupCLI(t)
	setPipelineFlags(t, filepath.Join(dir, "nope.yaml"), false, 1)

	c, _, _ := testCommand()
	if err := runPipeline(c, nil); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestRunValidate(t *testing.T) {
	_, dir := setupCLI(t)
	setString(t, &validateConfig, writeTestConfig(t, dir, testPipelineYAML))
	oldStrict := strict
	strict = false
	t.Cleanup(func() { strict = oldStrict })

	c, out, _ := testCommand()
	if err := runValidate(c, nil); err != nil {
		t.Fatalf("runValidate() error: %v", err)
	}
	if !strings.Contains(out.String(), "Validation passed: flask-ci (2 matrix cell(s), 2 environment(s))") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunValidate_StrictMode(t *testing.T) {
	_, dir := setupCLI(t)
	setString(t, &validateConfig, writeTestConfig(t, dir, `
name: flask-ci
versions: ["3.11"]
base_images: [python]
environments:
  production:
    registry: registry.example.com
`))
	oldStrict := strict
	t.Cleanup(func() { strict = oldStrict })

	c, _, errOut := testCommand()

	// staging is missing, which is only a warning.
	strict = false
	if err := runValidate(c, nil); err != nil {
		t.Fatalf("runValidate() error: %v", err)
	}
	if !strings.Contains(errOut.String(), "WARNING:") {
		t.Errorf("stderr missing warning, got:\n%s", errOut.String())
	}

	strict = true
	if err := runValidate(c, nil); err == nil {
		t.Fatal("expected strict mode to fail on warnings")
	}
}

func TestRunRender(t *testing.T) {
	_, dir := setupCLI(t)
	setString(t, &renderConfig, writeTestConfig(t, dir, testPipelineYAML))
	outPath := filepath.Join(dir, "Jenkinsfile")
	setString(t, &renderOutput, outPath)

	c, _, _ := testCommand()
	if err := runRender(c, nil); err != nil {
		t.Fatalf("runRender() error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading Jenkinsfile: %v", err)
	}
	for _, want := range []string{"stage('Test')", "sh 'pytest'", "choices: ['3.11', '3.9']"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Jenkinsfile missing %q, got:\n%s", want, data)
		}
	}
}

func TestRunRender_Stdout(t *testing.T) {
	_, dir := setupCLI(t)
	setString(t, &renderConfig, writeTestConfig(t, dir, testPipelineYAML))
	setString(t, &renderOutput, "-")

	c, out, _ := testCommand()
	if err := runRender(c, nil); err != nil {
		t.Fatalf("runRender() error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "pipeline {") {
		t.Errorf("stdout = %q, want Jenkinsfile", out.String())
	}
}
