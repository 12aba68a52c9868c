package container

// DockerSocket is the docker daemon's API socket.
const DockerSocket = "/var/run/docker.sock"

// Docker renders docker CLI commands.
type Docker struct{}

func (d *Docker) Name() string { return "docker" }

func (d *Docker) Available() bool { return d.cli().available("info") }

func (d *Docker) BuildCommand(opts BuildOptions) string { return d.cli().build(opts) }

func (d *Docker) TagCommand(source, target string) string { return d.cli().tag(source, target) }

func (d *Docker) PushCommand(image string) string { return d.cli().push(image) }

func (d *Docker) RunCommand(opts RunOptions) string { return d.cli().run(opts) }

func (d *Docker) Socket() string { return DockerSocket }

func (d *Docker) cli() cli { return cli{bin: "docker"} }
