package main

import (
	"os"

	"github.com/wayfarerhq/wayfarer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
