// cmd/main.go is the application entry point.
// It exposes the server and its maintenance tasks as subcommands.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "medicamp",
		Short:         "Medical camp registration and payment backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newRecountCmd())

	if err := root.Execute(); err != nil {
		log.Printf("medicamp: %v", err)
		os.Exit(1)
	}
}
