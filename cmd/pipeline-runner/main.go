package main

import (
	runnercmd "github.com/initializ/pipeline-runner/cmd"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	runnercmd.SetVersionInfo(version, commit)
	runnercmd.Execute()
}
