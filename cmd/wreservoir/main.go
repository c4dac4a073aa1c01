// Command wreservoir drives a weighted reservoir from the command
// line: a bench subcommand repeatedly ingests batches and reports
// timings, and a roundtrip subcommand exercises checkpoint export and
// import.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "bench":
		err = runBench(os.Args[2:])
	case "roundtrip":
		err = runRoundtrip(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "wreservoir:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: wreservoir <bench|roundtrip> [flags]")
}
