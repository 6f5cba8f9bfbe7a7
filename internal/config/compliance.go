package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/pelletier/go-toml/v2"
	"github.com/regulaworks/corpagent/internal/domain"
)

// Rule kinds. Structural rules are deterministic pattern predicates;
// retrieval rules compare a located clause against known-compliant language
// in the knowledge index.
const (
	RuleKindStructural = "structural"
	RuleKindRetrieval  = "retrieval"
)

// Compliance is the externally supplied analysis configuration: the
// process→checklist table, the document-type label dictionary, the rule
// records, thresholds, retry/timeout parameters and scoring weights.
type Compliance struct {
	Classifier    ClassifierConfig      `toml:"classifier"`
	DocumentTypes []DocumentTypePattern `toml:"document_types"`
	Processes     []ProcessConfig       `toml:"processes"`
	Rules         []RuleConfig          `toml:"rules"`
	Retrieval     RetrievalConfig       `toml:"retrieval"`
	Scoring       ScoringConfig         `toml:"scoring"`
	External      ExternalConfig        `toml:"external"`
}

// ClassifierConfig tunes process classification.
type ClassifierConfig struct {
	// MinOverlap is the minimum checklist overlap ratio for a process to
	// win; below it the batch is unclassified.
	MinOverlap float64 `toml:"min_overlap"`
}

// DocumentTypePattern maps filename/heading substrings to a document-type label.
type DocumentTypePattern struct {
	Label    string   `toml:"label"`
	Patterns []string `toml:"patterns"` // lowercase substrings
}

// ProcessConfig defines a process and its ordered required checklist.
type ProcessConfig struct {
	Name      string   `toml:"name"`
	Title     string   `toml:"title"`
	Checklist []string `toml:"checklist"`
}

// RuleConfig is a data-driven tagged rule record.
type RuleConfig struct {
	ID   string `toml:"id"`
	Kind string `toml:"kind"`

	// AppliesTo restricts the rule to the listed document-type labels.
	// Empty means the rule applies to every document.
	AppliesTo []string `toml:"applies_to"`

	// SectionPattern locates the clause the rule is about. When it matches
	// a section, the rule is checked against (and anchored to) that
	// section; when it matches nothing the rule falls back to the whole
	// document.
	SectionPattern string `toml:"section_pattern"`

	// Pattern is the language a structural rule requires to be present.
	Pattern string `toml:"pattern"`

	// MinSimilarity is the retrieval-rule threshold: a top match scoring
	// below it means the clause diverges from known-compliant language.
	MinSimilarity float64 `toml:"min_similarity"`

	Severity   string `toml:"severity"`
	Message    string `toml:"message"`
	Suggestion string `toml:"suggestion"`
	Reference  string `toml:"reference"`
}

// RetrievalConfig tunes knowledge-index queries.
type RetrievalConfig struct {
	TopK int `toml:"top_k"`
}

// ScoringConfig holds the confidence-weighting constants.
type ScoringConfig struct {
	CompletenessWeight float64 `toml:"completeness_weight"`
	SeverityWeight     float64 `toml:"severity_weight"`
	CoverageWeight     float64 `toml:"coverage_weight"`

	HighWeight   float64 `toml:"high_weight"`
	MediumWeight float64 `toml:"medium_weight"`
	LowWeight    float64 `toml:"low_weight"`

	// IssueCapPerDocument scales the severity-load normalization with
	// batch size.
	IssueCapPerDocument float64 `toml:"issue_cap_per_document"`
}

// ExternalConfig bounds calls to the embedding/completion collaborators.
type ExternalConfig struct {
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxRetries     int     `toml:"max_retries"`
	MaxInFlight    int     `toml:"max_in_flight"`
	RatePerSecond  float64 `toml:"rate_per_second"`
	MaxConcurrency int     `toml:"max_concurrency"` // per-batch document workers
}

// LoadCompliance reads a TOML compliance configuration. An empty path
// returns the built-in ADGM defaults.
func LoadCompliance(path string) (*Compliance, error) {
	if path == "" {
		return DefaultCompliance(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compliance config: %w", err)
	}

	cfg := DefaultCompliance()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse compliance config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compliance config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Compliance) Validate() error {
	if c.Classifier.MinOverlap < 0 || c.Classifier.MinOverlap > 1 {
		return fmt.Errorf("classifier min_overlap must be in [0,1], got %v", c.Classifier.MinOverlap)
	}

	labels := make(map[string]struct{}, len(c.DocumentTypes))
	for _, dt := range c.DocumentTypes {
		if dt.Label == "" {
			return fmt.Errorf("document type with empty label")
		}
		if _, ok := labels[dt.Label]; ok {
			return fmt.Errorf("duplicate document type label %q", dt.Label)
		}
		labels[dt.Label] = struct{}{}
	}

	for _, p := range c.Processes {
		def := &domain.ProcessDefinition{
			Name:      domain.Process(p.Name),
			Title:     p.Title,
			Checklist: p.Checklist,
		}
		if err := domain.ValidateProcessDefinition(def); err != nil {
			return err
		}
	}

	ids := make(map[string]struct{}, len(c.Rules))
	for _, r := range c.Rules {
		if r.ID == "" {
			return fmt.Errorf("rule with empty id")
		}
		if _, ok := ids[r.ID]; ok {
			return fmt.Errorf("duplicate rule id %q", r.ID)
		}
		ids[r.ID] = struct{}{}

		switch r.Kind {
		case RuleKindStructural:
			if r.Pattern == "" {
				return fmt.Errorf("structural rule %q requires a pattern", r.ID)
			}
		case RuleKindRetrieval:
			if r.MinSimilarity <= 0 || r.MinSimilarity >= 1 {
				return fmt.Errorf("retrieval rule %q requires min_similarity in (0,1)", r.ID)
			}
		default:
			return fmt.Errorf("rule %q has unknown kind %q", r.ID, r.Kind)
		}

		for _, expr := range []string{r.Pattern, r.SectionPattern} {
			if expr == "" {
				continue
			}
			if _, err := regexp.Compile(expr); err != nil {
				return fmt.Errorf("rule %q has invalid pattern %q: %w", r.ID, expr, err)
			}
		}

		switch domain.Severity(r.Severity) {
		case domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow:
		default:
			return fmt.Errorf("rule %q has invalid severity %q", r.ID, r.Severity)
		}

		if r.Message == "" {
			return fmt.Errorf("rule %q requires a message", r.ID)
		}
	}

	s := c.Scoring
	if s.CompletenessWeight < 0 || s.SeverityWeight < 0 || s.CoverageWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if s.CompletenessWeight+s.SeverityWeight+s.CoverageWeight == 0 {
		return fmt.Errorf("at least one scoring weight must be positive")
	}
	if s.IssueCapPerDocument <= 0 {
		return fmt.Errorf("issue_cap_per_document must be positive")
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive")
	}

	return nil
}

// ProcessDefinitions converts the configured processes to domain definitions,
// preserving configuration order.
func (c *Compliance) ProcessDefinitions() []domain.ProcessDefinition {
	defs := make([]domain.ProcessDefinition, 0, len(c.Processes))
	for _, p := range c.Processes {
		defs = append(defs, domain.ProcessDefinition{
			Name:      domain.Process(p.Name),
			Title:     p.Title,
			Checklist: append([]string(nil), p.Checklist...),
		})
	}
	return defs
}

// DefaultCompliance returns the built-in ADGM rule set: incorporation,
// financial-services licensing and employment-visa checklists plus the core
// ADGM compliance rules.
func DefaultCompliance() *Compliance {
	return &Compliance{
		Classifier: ClassifierConfig{MinOverlap: 0.3},
		DocumentTypes: []DocumentTypePattern{
			{Label: "Articles of Association", Patterns: []string{"articles of association", "articles_of_association", "aoa"}},
			{Label: "Memorandum of Association", Patterns: []string{"memorandum of association", "memorandum", "moa"}},
			{Label: "Incorporation Application Form", Patterns: []string{"incorporation application", "incorporation_application"}},
			{Label: "UBO Declaration Form", Patterns: []string{"ubo", "ultimate beneficial owner"}},
			{Label: "Register of Members and Directors", Patterns: []string{"register of members", "register_of_members"}},
			{Label: "Board Resolution", Patterns: []string{"board resolution", "resolution"}},
			{Label: "FSRA License Application", Patterns: []string{"fsra", "license application", "licence application"}},
			{Label: "Business Plan", Patterns: []string{"business plan", "business_plan"}},
			{Label: "Compliance Manual", Patterns: []string{"compliance manual"}},
			{Label: "Risk Management Framework", Patterns: []string{"risk management"}},
			{Label: "Key Personnel CVs", Patterns: []string{"cv", "curriculum vitae", "key personnel"}},
			{Label: "Employment Contract", Patterns: []string{"employment contract", "employment_contract"}},
			{Label: "Educational Certificates", Patterns: []string{"educational certificate", "degree certificate"}},
			{Label: "Experience Certificates", Patterns: []string{"experience certificate"}},
			{Label: "Medical Certificate", Patterns: []string{"medical certificate", "medical_certificate"}},
			{Label: "Passport Copy", Patterns: []string{"passport"}},
		},
		Processes: []ProcessConfig{
			{
				Name:  "company_incorporation",
				Title: "Company Incorporation",
				Checklist: []string{
					"Articles of Association",
					"Memorandum of Association",
					"Incorporation Application Form",
					"UBO Declaration Form",
					"Register of Members and Directors",
				},
			},
			{
				Name:  "financial_licensing",
				Title: "Financial Services Licensing",
				Checklist: []string{
					"FSRA License Application",
					"Business Plan",
					"Compliance Manual",
					"Risk Management Framework",
					"Key Personnel CVs",
				},
			},
			{
				Name:  "employment_visa",
				Title: "Employment Visa Application",
				Checklist: []string{
					"Employment Contract",
					"Educational Certificates",
					"Experience Certificates",
					"Medical Certificate",
					"Passport Copy",
				},
			},
		},
		Rules: []RuleConfig{
			{
				ID:             "jurisdiction",
				Kind:           RuleKindStructural,
				SectionPattern: `(?i)jurisdiction|governing law|dispute`,
				Pattern:        `(?i)ADGM Courts?|Abu Dhabi Global Market`,
				Severity:       string(domain.SeverityHigh),
				Message:        "Document must specify ADGM jurisdiction",
				Suggestion:     "Refer disputes to the ADGM Courts under ADGM jurisdiction",
				Reference:      "ADGM Companies Regulations 2020, Article 6",
			},
			{
				ID:         "ubo_declaration",
				Kind:       RuleKindStructural,
				AppliesTo:  []string{"UBO Declaration Form", "Incorporation Application Form"},
				Pattern:    `(?i)Ultimate Beneficial Owner|UBO`,
				Severity:   string(domain.SeverityHigh),
				Message:    "UBO declaration required for AML compliance",
				Suggestion: "Declare all ultimate beneficial owners holding 25% or more",
				Reference:  "ADGM AML Rules 2019, Rule 3.2",
			},
			{
				ID:             "registered_office",
				Kind:           RuleKindStructural,
				AppliesTo:      []string{"Articles of Association", "Memorandum of Association", "Incorporation Application Form"},
				SectionPattern: `(?i)registered office`,
				Pattern:        `(?i)registered office[\s\S]{0,120}?(ADGM|Abu Dhabi Global Market)`,
				Severity:       string(domain.SeverityHigh),
				Message:        "Registered office must be in ADGM",
				Suggestion:     "State a registered office address within Abu Dhabi Global Market",
				Reference:      "ADGM Companies Regulations 2020, Article 29",
			},
			{
				ID:         "signatory_block",
				Kind:       RuleKindStructural,
				Pattern:    `(?i)sign(ed|ature|atory)|for and on behalf of`,
				Severity:   string(domain.SeverityMedium),
				Message:    "Document must contain a signatory block",
				Suggestion: "Add a signature section naming the signatory and capacity",
				Reference:  "ADGM Registration Authority filing guidance",
			},
			{
				ID:             "registered_office_alignment",
				Kind:           RuleKindRetrieval,
				AppliesTo:      []string{"Articles of Association", "Memorandum of Association"},
				SectionPattern: `(?i)registered office`,
				MinSimilarity:  0.78,
				Severity:       string(domain.SeverityMedium),
				Message:        "Registered office clause diverges from ADGM-compliant language",
				Suggestion:     "Align the registered office clause with ADGM Companies Regulations 2020, Article 29",
				Reference:      "ADGM Companies Regulations 2020, Article 29",
			},
			{
				ID:             "director_requirements",
				Kind:           RuleKindRetrieval,
				AppliesTo:      []string{"Articles of Association", "Register of Members and Directors"},
				SectionPattern: `(?i)directors?`,
				MinSimilarity:  0.75,
				Severity:       string(domain.SeverityLow),
				Message:        "Director provisions may not meet ADGM requirements",
				Suggestion:     "At least one director must be a natural person meeting fit and proper requirements",
				Reference:      "ADGM Companies Regulations 2020, Article 155",
			},
		},
		Retrieval: RetrievalConfig{TopK: 5},
		Scoring: ScoringConfig{
			CompletenessWeight:  0.4,
			SeverityWeight:      0.35,
			CoverageWeight:      0.25,
			HighWeight:          3,
			MediumWeight:        2,
			LowWeight:           1,
			IssueCapPerDocument: 6,
		},
		External: ExternalConfig{
			TimeoutSeconds: 20,
			MaxRetries:     3,
			MaxInFlight:    4,
			RatePerSecond:  5,
			MaxConcurrency: 4,
		},
	}
}
