package main

import (
	"os"

	bpapp "github.com/borderless-technologies/borderless-cli/app"
)

func main() {
	bpapp.App.Reader = os.Stdin
	bpapp.App.Writer = os.Stdout
	bpapp.App.ErrWriter = os.Stderr
	if err := bpapp.App.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
