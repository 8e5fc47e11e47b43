// Package main is the entry point for the assistant binary.
package main

import (
	"os"

	"github.com/yungbote/neurobridge-assistant/cmd/assistant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
