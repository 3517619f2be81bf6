package main

import (
	"log"
	"os"

	"github.com/cossteam/busline/cmd"
)

func main() {
	if err := cmd.App.RunContext(cmd.SetupSignalHandler(), os.Args); err != nil {
		log.Fatal(err)
	}
}
