package main

import (
	"os"

	"pksalink/cmd/pksalink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
