package main

import (
	"log"

	"WaveSplit/cmd"
)

func main() {
	cmd.Execute()
	// If Execute() had a problem, Cobra would have called os.Exit.
	log.Println("Command finished.")
}
