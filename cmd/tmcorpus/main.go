package main

import (
	"fmt"
	"os"

	"github.com/cognicore/tmcorpus/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tmcorpus:", err)
		os.Exit(1)
	}
}
