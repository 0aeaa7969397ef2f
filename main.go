package main

import (
	"os"

	"github.com/voiceline/voiceline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
