package knowledge

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/regulaworks/corpagent/internal/domain"
)

// LoadDir reads regulatory source texts from a directory tree. Only .txt and
// .md files are picked up. The immediate parent directory names the source
// type (regulations, guidelines, forms, templates); anything else defaults
// to regulation. Results are sorted by path so reindexing is deterministic.
func LoadDir(dir string) ([]SourceInput, error) {
	var inputs []SourceInput

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read knowledge source %s: %w", path, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}

		inputs = append(inputs, SourceInput{
			ID:         slugify(rel),
			Title:      sourceTitle(text, rel),
			SourceType: sourceTypeFor(rel),
			Text:       text,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load knowledge dir: %w", err)
	}

	sort.Slice(inputs, func(i, j int) bool { return inputs[i].ID < inputs[j].ID })
	return inputs, nil
}

func sourceTypeFor(rel string) domain.SourceType {
	parent := filepath.Base(filepath.Dir(rel))
	switch strings.ToLower(parent) {
	case "guidelines":
		return domain.SourceTypeGuideline
	case "forms":
		return domain.SourceTypeForm
	case "templates":
		return domain.SourceTypeTemplate
	default:
		return domain.SourceTypeRegulation
	}
}

// sourceTitle takes the first markdown heading or first line as the title,
// falling back to the filename.
func sourceTitle(text, rel string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(strings.TrimLeft(line, "# "))
		if trimmed != "" {
			if len(trimmed) > 120 {
				trimmed = trimmed[:120]
			}
			return trimmed
		}
	}
	return filepath.Base(rel)
}

func slugify(rel string) string {
	slug := strings.TrimSuffix(rel, filepath.Ext(rel))
	slug = strings.ToLower(slug)
	var b strings.Builder
	lastDash := false
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
