package main

import (
	"os"

	"github.com/hamza/chilltutor/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
