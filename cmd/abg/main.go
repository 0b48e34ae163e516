package main

import (
	"os"

	"github.com/gkobilansky/ab-goat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
