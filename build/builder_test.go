package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/initializ/pipeline-runner/container"
	"github.com/initializ/pipeline-runner/shell"
	"github.com/initializ/pipeline-runner/types"
)

func TestRenderDockerfile_Families(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		want    string
		notWant string
	}{
		{"debian", "python", "apt-get install -y --no-install-recommends gcc", "apk add"},
		{"slim", "python-slim", "apt-get update", "apk add"},
		{"alpine", "python-alpine", "RUN apk add --no-cache gcc musl-dev linux-headers", "apt-get"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := RenderDockerfile("3.11", types.NewBaseImage(tt.base))
			if err != nil {
				t.Fatalf("RenderDockerfile() error: %v", err)
			}
			content := string(data)
			if !strings.HasPrefix(content, "FROM "+tt.base+":3.11\n") {
				t.Errorf("missing FROM line, got:\n%s", content)
			}
			if !strings.Contains(content, tt.want) {
				t.Errorf("missing %q, got:\n%s", tt.want, content)
			}
			if strings.Contains(content, tt.notWant) {
				t.Errorf("unexpected %q, got:\n%s", tt.notWant, content)
			}
		})
	}
}

func TestRenderDockerfile_Body(t *testing.T) {
	data, err := RenderDockerfile("3.9", types.NewBaseImage("python"))
	if err != nil {
		t.Fatalf("RenderDockerfile() error: %v", err)
	}

	want := `FROM python:3.9

WORKDIR /app

RUN apt-get update && apt-get install -y --no-install-recommends gcc && rm -rf /var/lib/apt/lists/*

COPY requirements.txt .
RUN pip install --no-cache-dir -r requirements.txt

COPY . .

EXPOSE 5000

CMD ["flask", "run", "--host=0.0.0.0"]
`
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("Dockerfile mismatch (-want +got):\n%s", diff)
	}
}

func TestCellDockerfile(t *testing.T) {
	tests := []struct {
		version, base, want string
	}{
		{"3.11", "python", "Dockerfile.3.11_python.generated"},
		{"3.9", "python-alpine", "Dockerfile.3.9_python-alpine.generated"},
		{"3.12", "registry.io/team/python:slim", "Dockerfile.3.12_registry.io-team-python-slim.generated"},
	}
	for _, tt := range tests {
		if got := CellDockerfile(tt.version, tt.base); got != tt.want {
			t.Errorf("CellDockerfile(%q, %q) = %q, want %q", tt.version, tt.base, got, tt.want)
		}
	}
}

func TestImageBuilder_Build(t *testing.T) {
	dir := t.TempDir()
	rec := shell.NewRecorder()
	b := &ImageBuilder{Tool: &container.Docker{}, Exec: rec, ContextDir: dir}

	artifact, err := b.Build(context.Background(), "3.11", types.NewBaseImage("python"), "latest")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if artifact != "flask-app:3.11_python-latest" {
		t.Errorf("artifact = %q, want %q", artifact, "flask-app:3.11_python-latest")
	}

	want := []string{"docker build -f Dockerfile.generated -t flask-app:3.11_python-latest ."}
	if diff := cmp.Diff(want, rec.Commands()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(filepath.Join(dir, DefaultDockerfile))
	if err != nil {
		t.Fatalf("reading Dockerfile: %v", err)
	}
	if !strings.Contains(string(data), "FROM python:3.11") {
		t.Errorf("Dockerfile missing FROM line, got:\n%s", data)
	}
}

func TestImageBuilder_BuildOverwritesDockerfile(t *testing.T) {
	dir := t.TempDir()
	b := &ImageBuilder{App: "svc", Tool: &container.Podman{}, Exec: shell.NewRecorder(), ContextDir: dir}
	ctx := context.Background()

	if _, err := b.Build(ctx, "3.10", types.NewBaseImage("python-alpine"), "t"); err != nil {
		t.Fatalf("first Build() error: %v", err)
	}
	if _, err := b.Build(ctx, "3.12", types.NewBaseImage("python"), "t"); err != nil {
		t.Fatalf("second Build() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, DefaultDockerfile))
	if err != nil {
		t.Fatalf("reading Dockerfile: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "FROM python:3.12") || strings.Contains(content, "apk add") {
		t.Errorf("Dockerfile not overwritten by second build, got:\n%s", content)
	}
}

func TestImageBuilder_PerCellDockerfile(t *testing.T) {
	dir := t.TempDir()
	rec := shell.NewRecorder()
	b := &ImageBuilder{Tool: &container.Docker{}, Exec: rec, ContextDir: dir, PerCellDockerfile: true}

	if _, err := b.Build(context.Background(), "3.9", types.NewBaseImage("python-alpine"), "pipeline"); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	name := "Dockerfile.3.9_python-alpine.generated"
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Errorf("per-cell Dockerfile not written: %v", err)
	}
	if got := rec.Commands()[0]; !strings.Contains(got, "-f "+name) {
		t.Errorf("build command %q does not reference %s", got, name)
	}
}

func TestImageBuilder_BuildFailurePropagatesUnchanged(t *testing.T) {
	dir := t.TempDir()
	rec := shell.NewRecorder().FailOn("docker build", "no space left on device")
	b := &ImageBuilder{Tool: &container.Docker{}, Exec: rec, ContextDir: dir}

	artifact, err := b.Build(context.Background(), "3.11", types.NewBaseImage("python"), "latest")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if artifact != "" {
		t.Errorf("artifact = %q, want empty", artifact)
	}

	var execErr *shell.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error %T is not *shell.ExecutionError", err)
	}
	if execErr.Stderr != "no space left on device" {
		t.Errorf("Stderr = %q", execErr.Stderr)
	}

	// The rendered Dockerfile stays behind after a failed build.
	if _, err := os.Stat(filepath.Join(dir, DefaultDockerfile)); err != nil {
		t.Errorf("Dockerfile removed after failure: %v", err)
	}
}

func TestImageBuilder_WriteFailure(t *testing.T) {
	rec := shell.NewRecorder()
	b := &ImageBuilder{
		Tool:       &container.Docker{},
		Exec:       rec,
		ContextDir: filepath.Join(t.TempDir(), "missing"),
	}

	if _, err := b.Build(context.Background(), "3.11", types.NewBaseImage("python"), "latest"); err == nil {
		t.Fatal("expected error for missing context dir")
	}
	if n := len(rec.Commands()); n != 0 {
		t.Errorf("ran %d commands, want 0", n)
	}
}
