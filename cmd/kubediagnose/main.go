package main

import (
	"os"

	"github.com/moolen/kubediagnose/cmd/kubediagnose/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
