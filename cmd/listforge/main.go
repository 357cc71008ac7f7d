package main

import (
	"os"

	"github.com/listforge/listforge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
