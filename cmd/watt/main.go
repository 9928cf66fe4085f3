// Package main is the single-binary entrypoint for Watt.
package main

import "github.com/watt-tools/watt/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
