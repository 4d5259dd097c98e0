package main

import (
	"os"

	"github.com/rustyeddy/livetrade/cmd/livetrade/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
