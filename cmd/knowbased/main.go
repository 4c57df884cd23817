package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/knowbase/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "knowbased",
		Short: "Knowbase daemon and CLI",
		Long:  "Knowbase daemon for serving the knowledge API and managing domain content packs",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ExportCmd())
	rootCmd.AddCommand(admin.ReinitCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
