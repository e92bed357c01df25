package main

import (
	"os"

	"github.com/pilab-dev/homefin-auth/cmd/authctl/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
