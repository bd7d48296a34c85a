package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/ChristianF88/cidrfold/cli"
	"github.com/ChristianF88/cidrfold/config"
)

func main() {
	// .env must be loaded before flags read their environment variables.
	if err := config.LoadDotEnv(); err != nil {
		log.Warn("Could not load .env file", "error", err)
	}
	if err := cli.App.Run(os.Args); err != nil {
		fmt.Println("Error running CLI app:", err)
		os.Exit(1)
	}
}
