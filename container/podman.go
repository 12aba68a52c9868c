package container

import (
	"os"
	"path"
)

// PodmanRootSocket is the API socket of rootful podman.
const PodmanRootSocket = "/run/podman/podman.sock"

// Podman renders podman CLI commands. Podman accepts the docker command set.
type Podman struct {
	// SocketPath overrides the API socket found from the environment.
	SocketPath string
}

func (p *Podman) Name() string { return "podman" }

func (p *Podman) Available() bool { return p.cli().available("info") }

func (p *Podman) BuildCommand(opts BuildOptions) string { return p.cli().build(opts) }

func (p *Podman) TagCommand(source, target string) string { return p.cli().tag(source, target) }

func (p *Podman) PushCommand(image string) string { return p.cli().push(image) }

func (p *Podman) RunCommand(opts RunOptions) string { return p.cli().run(opts) }

// Socket returns SocketPath, else the rootless socket under
// XDG_RUNTIME_DIR for non-root users, else the rootful socket.
func (p *Podman) Socket() string {
	if p.SocketPath != "" {
		return p.SocketPath
	}
	return podmanSocket(os.Geteuid(), os.Getenv("XDG_RUNTIME_DIR"))
}

func podmanSocket(euid int, runtimeDir string) string {
	if euid == 0 || runtimeDir == "" {
		return PodmanRootSocket
	}
	return path.Join(runtimeDir, "podman", "podman.sock")
}

func (p *Podman) cli() cli { return cli{bin: "podman"} }
