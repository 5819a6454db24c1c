package main

import "github.com/ronchon/server/internal/cli"

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	cli.Execute(Version)
}
