package main

import "onionsite/internal/cli"

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cli.Execute(version, buildDate)
}
