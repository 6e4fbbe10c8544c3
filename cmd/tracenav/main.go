package main

import (
	"os"

	"github.com/tracenav/tracenav/cmd/tracenav/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
