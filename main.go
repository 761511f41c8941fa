package main

import (
	"os"

	"github.com/bisegni/liveset/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
