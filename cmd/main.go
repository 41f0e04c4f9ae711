package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
