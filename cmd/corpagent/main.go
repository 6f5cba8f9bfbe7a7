package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regulaworks/corpagent/internal/cli"
	"github.com/regulaworks/corpagent/internal/cli/admin"
	"github.com/regulaworks/corpagent/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "corpagent",
		Short: "Corpagent CLI - document compliance analysis",
		Long: `Corpagent analyzes batches of legal documents against ADGM regulatory
checklists: process classification, checklist verification, rule checks and
an annotated report.

Environment variables:
  OPENAI_API_KEY      Embedding/completion backend (optional; retrieval
                      checks degrade to unverified without it)
  KNOWLEDGE_DIR       Regulatory source directory (default: knowledge)
  DATABASE_URL        Postgres knowledge store (optional)
  COMPLIANCE_CONFIG   Compliance TOML path (optional; ADGM defaults built in)`,
		Version: version,
	}

	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AnalyzeCmd())
	rootCmd.AddCommand(client.ReindexCmd())
	rootCmd.AddCommand(admin.ServeCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
