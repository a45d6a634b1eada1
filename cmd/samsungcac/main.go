package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zberg/go-samsungcac/internal/logging"
	"github.com/zberg/go-samsungcac/pkg/samsungcac"
)

var rootCmd = &cobra.Command{
	Use:               "samsungcac",
	Short:             "Samsung AC controller CLI",
	Long:              `A command line interface for Samsung air conditioning controllers (MIM-H02).`,
	Version:           samsungcac.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
