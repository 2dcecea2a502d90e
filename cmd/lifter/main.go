package main

import (
	"os"

	"github.com/solatis/lifter/cmd/lifter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
