package main

import (
	"os"

	"github.com/stumpscore/stumpscore/cmd/stumpscore/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
