package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultComplianceIsValid(t *testing.T) {
	cfg := DefaultCompliance()
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Processes, 3)
	assert.NotEmpty(t, cfg.Rules)
	assert.NotEmpty(t, cfg.DocumentTypes)
}

func TestDefaultComplianceIncorporationChecklist(t *testing.T) {
	cfg := DefaultCompliance()

	var incorporation *ProcessConfig
	for i := range cfg.Processes {
		if cfg.Processes[i].Name == "company_incorporation" {
			incorporation = &cfg.Processes[i]
		}
	}
	require.NotNil(t, incorporation)

	assert.Equal(t, []string{
		"Articles of Association",
		"Memorandum of Association",
		"Incorporation Application Form",
		"UBO Declaration Form",
		"Register of Members and Directors",
	}, incorporation.Checklist)
}

func TestLoadComplianceEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadCompliance("")
	require.NoError(t, err)
	assert.Len(t, cfg.Processes, 3)
}

func TestLoadComplianceOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compliance.toml")
	content := `
[classifier]
min_overlap = 0.5

[retrieval]
top_k = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadCompliance(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Classifier.MinOverlap)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	// Unspecified sections keep defaults.
	assert.Len(t, cfg.Processes, 3)
}

func TestLoadComplianceRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compliance.toml")
	content := `
[classifier]
min_overlap = 1.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadCompliance(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_overlap")
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Compliance)
		wantErr string
	}{
		{
			name: "duplicate rule id",
			mutate: func(c *Compliance) {
				c.Rules = append(c.Rules, c.Rules[0])
			},
			wantErr: "duplicate rule id",
		},
		{
			name: "structural without pattern",
			mutate: func(c *Compliance) {
				c.Rules[0].Pattern = ""
			},
			wantErr: "requires a pattern",
		},
		{
			name: "invalid regexp",
			mutate: func(c *Compliance) {
				c.Rules[0].Pattern = "("
			},
			wantErr: "invalid pattern",
		},
		{
			name: "unknown kind",
			mutate: func(c *Compliance) {
				c.Rules[0].Kind = "heuristic"
			},
			wantErr: "unknown kind",
		},
		{
			name: "invalid severity",
			mutate: func(c *Compliance) {
				c.Rules[0].Severity = "Critical"
			},
			wantErr: "invalid severity",
		},
		{
			name: "retrieval threshold out of range",
			mutate: func(c *Compliance) {
				for i := range c.Rules {
					if c.Rules[i].Kind == RuleKindRetrieval {
						c.Rules[i].MinSimilarity = 1.2
						return
					}
				}
			},
			wantErr: "min_similarity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCompliance()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProcessDefinitions(t *testing.T) {
	cfg := DefaultCompliance()
	defs := cfg.ProcessDefinitions()

	require.Len(t, defs, len(cfg.Processes))
	assert.Equal(t, "company_incorporation", string(defs[0].Name))
	assert.Equal(t, "Company Incorporation", defs[0].Title)
	assert.Len(t, defs[0].Checklist, 5)
}
