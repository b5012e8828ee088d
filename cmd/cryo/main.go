package main

import (
	"os"

	"github.com/paradigmxyz/cryo/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
