package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regulaworks/corpagent/internal/cli"
	"github.com/regulaworks/corpagent/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "corpagentd",
		Short: "Corpagent daemon",
		Long:  "Corpagent daemon serving the analysis API and background reindex worker",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
