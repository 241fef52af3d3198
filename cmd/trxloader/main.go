package main

import (
	"os"

	"github.com/trxui/trxloader/internal/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Execute has already reported the error to the user.
	if err := cmd.Execute(version, commit, date); err != nil {
		os.Exit(1)
	}
}
