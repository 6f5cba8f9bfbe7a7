package domain

import "fmt"

// Process identifies a recognized legal process with its own required-document
// checklist. Processes other than Unclassified come from configuration.
type Process string

// ProcessUnclassified is the fallback when no configured process matches the
// uploaded document set well enough. It carries an empty checklist and the
// batch proceeds with structural-only rule checks.
const ProcessUnclassified Process = "unclassified"

// ProcessDefinition binds a process to its ordered required-document checklist.
type ProcessDefinition struct {
	Name      Process
	Title     string
	Checklist []string // ordered document-type labels, no duplicates
}

// ValidateProcessDefinition validates a ProcessDefinition instance.
// A classified process always has a non-empty checklist.
func ValidateProcessDefinition(p *ProcessDefinition) error {
	if p == nil {
		return fmt.Errorf("process definition cannot be nil")
	}
	if p.Name == "" {
		return fmt.Errorf("process Name is required")
	}
	if p.Name == ProcessUnclassified {
		return fmt.Errorf("process %q is reserved", ProcessUnclassified)
	}
	if len(p.Checklist) == 0 {
		return fmt.Errorf("process %q must have a non-empty checklist", p.Name)
	}
	seen := make(map[string]struct{}, len(p.Checklist))
	for _, label := range p.Checklist {
		if label == "" {
			return fmt.Errorf("process %q has an empty checklist entry", p.Name)
		}
		if _, ok := seen[label]; ok {
			return fmt.Errorf("process %q has duplicate checklist entry %q", p.Name, label)
		}
		seen[label] = struct{}{}
	}
	return nil
}
