// Package checklist compares uploaded document types against a process's
// required checklist.
package checklist

// Result lists the checklist outcome for one batch. Missing preserves
// checklist order; Extra preserves upload order and is informational only.
type Result struct {
	Missing []string
	Extra   []string
}

// Verify computes which required documents are absent and which uploads fall
// outside the checklist. Empty type labels are ignored on both sides.
func Verify(uploadedTypes []string, requiredChecklist []string) Result {
	uploaded := make(map[string]struct{}, len(uploadedTypes))
	for _, t := range uploadedTypes {
		if t != "" {
			uploaded[t] = struct{}{}
		}
	}
	required := make(map[string]struct{}, len(requiredChecklist))
	for _, r := range requiredChecklist {
		required[r] = struct{}{}
	}

	var result Result
	for _, r := range requiredChecklist {
		if _, ok := uploaded[r]; !ok {
			result.Missing = append(result.Missing, r)
		}
	}

	seen := make(map[string]struct{}, len(uploadedTypes))
	for _, t := range uploadedTypes {
		if t == "" {
			continue
		}
		if _, ok := required[t]; ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		result.Extra = append(result.Extra, t)
	}
	return result
}
