package main

import (
	"fmt"
	"log"
	"os"

	"regbet/cmd"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "run":
		if err := cmd.Run(os.Args[2:]); err != nil {
			log.Fatalf("Batch failed: %v", err)
		}
	case "serve":
		if err := cmd.Serve(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	default:
		fmt.Println("Unknown command:", command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: regbet <command>")
	fmt.Println("  run    -in <dir> -atlas <file> -out <dir> [flags]   run one batch pass")
	fmt.Println("  serve                                               start the history API and scheduler")
}
