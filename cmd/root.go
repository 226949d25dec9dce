package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clover-pos",
	Short: "Clover POS connector",
	Long:  "A connector between POS back ends and Clover payment terminals: OAuth, webhooks, API proxy and operation tracking.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
