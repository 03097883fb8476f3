package main

import (
	"log"
	"os"
)

func main() {
	log.SetFlags(log.Ltime)

	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		log.Fatal("[ERROR] ", err)
	}
}

var ldflagsSoftwareVersion = "debug"
