// Package main is the entrypoint for the opsctl maintenance tool.
package main

import (
	"os"

	"github.com/tpln/gateway/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
