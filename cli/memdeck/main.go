package main

import (
	"os"

	memdeckcmder "github.com/papercomputeco/memdeck/cmd/memdeck"
)

func main() {
	cmd := memdeckcmder.NewMemdeckCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
