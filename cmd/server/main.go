// Package main is the entry point for the als2hapax API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/als2hapax/pkg/api"
	"github.com/james-see/als2hapax/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	flag.IntVar(&cfg.ServerPort, "port", cfg.ServerPort, "Server port")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Log conversions to stderr")
	flag.Parse()

	fmt.Printf("Starting als2hapax API server on port %d...\n", cfg.ServerPort)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.ServerPort)

	if err := api.StartServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
