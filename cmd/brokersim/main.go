package main

import (
	"os"

	"github.com/rustyeddy/brokersim/cmd/brokersim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
