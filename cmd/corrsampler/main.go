// Package main provides the corrsampler CLI: shape inspection, SafeTensors
// correlation runs, gradient checks and benchmarks for the correlation sampler.
package main

import (
	"fmt"
	"log"
	"os"
)

const version = "v0.1.0"

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands = []command{
	{"version", "Show version", func([]string) error {
		fmt.Printf("corrsampler %s\n", version)
		return nil
	}},
	{"shape", "Print the volume shape for an input shape and parameters", runShape},
	{"run", "Correlate tensors from a SafeTensors file and write the result", runRun},
	{"check", "Gradient check and scheduler parity on random inputs", runCheck},
	{"bench", "Time forward and backward passes", runBench},
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("corrsampler: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	name := os.Args[1]
	for _, c := range commands {
		if c.name == name {
			if err := c.run(os.Args[2:]); err != nil {
				log.Fatalf("%s: %v", name, err)
			}
			return
		}
	}

	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, "corrsampler %s - spatial correlation sampler\n\n", version)
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(os.Stderr, "\nRun 'corrsampler <command> -h' for command flags.")
}
