// Package container builds command lines for container tools (docker,
// podman). It never runs anything itself; callers hand the command lines
// to a shell.Executor.
package container

import (
	"fmt"
	"os/exec"
	"sort"
)

// Tool renders the command lines for one container CLI.
type Tool interface {
	Name() string
	Available() bool
	BuildCommand(opts BuildOptions) string
	TagCommand(source, target string) string
	PushCommand(image string) string
	RunCommand(opts RunOptions) string
	// Socket is the host path of the tool's docker-compatible API socket.
	Socket() string
}

// BuildOptions configures a container image build.
type BuildOptions struct {
	ContextDir string
	Dockerfile string
	Tag        string
	Platform   string
	NoCache    bool
	BuildArgs  map[string]string
}

// RunOptions configures a throwaway container run. Containers are always
// removed on exit.
type RunOptions struct {
	Image   string
	Volumes []string
	Args    []string
}

// Detect returns the first available container tool in order: docker, podman.
// Returns nil if none is available.
func Detect() Tool {
	tools := []Tool{
		&Docker{},
		&Podman{},
	}
	for _, t := range tools {
		if t.Available() {
			return t
		}
	}
	return nil
}

// Get returns a tool by name, or nil if the name is unknown.
func Get(name string) Tool {
	switch name {
	case "docker":
		return &Docker{}
	case "podman":
		return &Podman{}
	default:
		return nil
	}
}

// cli renders the docker-compatible command set shared by docker and podman.
type cli struct {
	bin string
}

func (c cli) available(subcommand string) bool {
	return exec.Command(c.bin, subcommand).Run() == nil
}

func (c cli) build(opts BuildOptions) string {
	args := []string{c.bin, "build"}

	if opts.Dockerfile != "" {
		args = append(args, "-f", opts.Dockerfile)
	}
	if opts.Tag != "" {
		args = append(args, "-t", opts.Tag)
	}
	if opts.Platform != "" {
		args = append(args, "--platform", opts.Platform)
	}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}

	keys := make([]string, 0, len(opts.BuildArgs))
	for k := range opts.BuildArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, opts.BuildArgs[k]))
	}

	contextDir := opts.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	args = append(args, contextDir)

	return Join(args...)
}

func (c cli) tag(source, target string) string {
	return Join(c.bin, "tag", source, target)
}

func (c cli) push(image string) string {
	return Join(c.bin, "push", image)
}

func (c cli) run(opts RunOptions) string {
	args := []string{c.bin, "run", "--rm"}
	for _, v := range opts.Volumes {
		args = append(args, "-v", v)
	}
	args = append(args, opts.Image)
	args = append(args, opts.Args...)
	return Join(args...)
}
