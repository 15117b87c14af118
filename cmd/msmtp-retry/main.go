package main

import (
	"os"

	"github.com/psantana5/msmtp-retry/cmd/msmtp-retry/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
