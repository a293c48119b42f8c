package main

import (
	"os"

	"deptnorm/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
