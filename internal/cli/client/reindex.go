package client

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/regulaworks/corpagent/internal/config"
	"github.com/regulaworks/corpagent/internal/database"
	"github.com/regulaworks/corpagent/internal/knowledge"
	"github.com/regulaworks/corpagent/internal/openai"
	"github.com/regulaworks/corpagent/internal/repository"
)

// ReindexCmd creates the reindex command.
func ReindexCmd() *cobra.Command {
	var knowledgeDir string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the knowledge index from the source directory",
		Long: `Load every regulatory source under the knowledge directory, embed it and,
when DATABASE_URL is set, persist the snapshot so the daemon can restore it
on start. Requires OPENAI_API_KEY.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd, knowledgeDir)
		},
	}

	cmd.Flags().StringVar(&knowledgeDir, "knowledge", "", "Knowledge source directory (overrides KNOWLEDGE_DIR)")

	return cmd
}

func runReindex(cmd *cobra.Command, knowledgeDir string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if knowledgeDir == "" {
		knowledgeDir = cfg.KnowledgeDir
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to reindex")
	}

	compliance, err := config.LoadCompliance(cfg.ComplianceConfig)
	if err != nil {
		return fmt.Errorf("failed to load compliance config: %w", err)
	}

	aiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:        cfg.OpenAIAPIKey,
		Timeout:       time.Duration(compliance.External.TimeoutSeconds) * time.Second,
		MaxRetries:    compliance.External.MaxRetries,
		MaxInFlight:   compliance.External.MaxInFlight,
		RatePerSecond: int(compliance.External.RatePerSecond),
	})

	var store knowledge.Store
	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		store = repository.NewKnowledgeStore(pool)
	}

	index := knowledge.NewIndex(aiClient)
	manager := knowledge.NewManager(knowledgeDir, index, store)
	if err := manager.Reindex(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d source(s), %d chunk(s)\n", len(manager.Sources()), index.Len())
	if store != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Snapshot persisted to database")
	}
	return nil
}
