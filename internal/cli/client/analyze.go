package client

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/regulaworks/corpagent/internal/analyze"
	"github.com/regulaworks/corpagent/internal/annotate"
	"github.com/regulaworks/corpagent/internal/config"
	"github.com/regulaworks/corpagent/internal/knowledge"
	"github.com/regulaworks/corpagent/internal/openai"
	"github.com/regulaworks/corpagent/internal/rules"
	"github.com/regulaworks/corpagent/internal/storage"
)

// AnalyzeCmd creates the analyze command.
func AnalyzeCmd() *cobra.Command {
	var (
		outputDir      string
		knowledgeDir   string
		compliancePath string
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Analyze a batch of documents against the compliance checklist",
		Long: `Run the full analysis pipeline locally on a set of document files.

The batch is classified into a legal process, verified against that
process's checklist, and every document is checked against the configured
rules. Annotated copies, report.json and report.md land in the output
directory.

Without OPENAI_API_KEY the structural checks still run; retrieval-backed
checks are reported as unverified.

Examples:
  corpagent analyze articles.txt memorandum.txt
  corpagent analyze --output ./review docs/*.txt
  corpagent analyze --knowledge ./adgm-sources application.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, outputDir, knowledgeDir, compliancePath)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "corpagent-out", "Directory for annotated copies and reports")
	cmd.Flags().StringVar(&knowledgeDir, "knowledge", "", "Knowledge source directory (overrides KNOWLEDGE_DIR)")
	cmd.Flags().StringVar(&compliancePath, "compliance-config", "", "Compliance TOML path (overrides COMPLIANCE_CONFIG)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, outputDir, knowledgeDir, compliancePath string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if knowledgeDir == "" {
		knowledgeDir = cfg.KnowledgeDir
	}
	if compliancePath == "" {
		compliancePath = cfg.ComplianceConfig
	}

	compliance, err := config.LoadCompliance(compliancePath)
	if err != nil {
		return fmt.Errorf("failed to load compliance config: %w", err)
	}

	var aiClient *openai.Client
	var embedder knowledge.Embedder
	if cfg.HasOpenAI() {
		aiClient = openai.NewClientWithConfig(openai.Config{
			APIKey:        cfg.OpenAIAPIKey,
			Timeout:       time.Duration(compliance.External.TimeoutSeconds) * time.Second,
			MaxRetries:    compliance.External.MaxRetries,
			MaxInFlight:   compliance.External.MaxInFlight,
			RatePerSecond: int(compliance.External.RatePerSecond),
		})
		embedder = aiClient
	}

	index := knowledge.NewIndex(embedder)
	if aiClient != nil {
		manager := knowledge.NewManager(knowledgeDir, index, nil)
		if err := manager.Reindex(ctx); err != nil {
			log.Printf("knowledge reindex failed, retrieval checks will report unverified: %v", err)
		}
	} else {
		log.Println("OPENAI_API_KEY not set: retrieval checks will report unverified")
	}

	engineOpts := []rules.Option{}
	if aiClient != nil {
		engineOpts = append(engineOpts, rules.WithSuggestionWriter(aiClient))
	}
	engine, err := rules.NewEngine(compliance, index, engineOpts...)
	if err != nil {
		return fmt.Errorf("failed to build rule engine: %w", err)
	}

	inputs := make([]analyze.InputDocument, 0, len(args))
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		inputs = append(inputs, analyze.InputDocument{
			Filename: filepath.Base(path),
			Content:  content,
		})
	}

	pipeline := analyze.New(compliance, engine)
	result, err := pipeline.Run(ctx, inputs)
	if err != nil {
		return err
	}

	annotated := make(map[string]string, len(result.Documents))
	for _, d := range result.Documents {
		annotated[d.Document.Filename] = d.Annotated
	}
	summary := annotate.RenderSummary(result.Report)

	artifacts := storage.NewArtifactStore(storage.NewFSStore(outputDir))
	keys, err := artifacts.SaveBatch(ctx, result.BatchID, result.Report, summary, annotated)
	if err != nil {
		return fmt.Errorf("failed to write artifacts: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, summary)
	fmt.Fprintf(out, "\nBatch %s: %d artifact(s) written to %s\n", result.BatchID, len(keys), outputDir)
	return nil
}
