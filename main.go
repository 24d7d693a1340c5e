package main

import (
	"os"

	"github.com/AnyUserName/phototune/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
