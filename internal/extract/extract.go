package extract

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/regulaworks/corpagent/internal/domain"
)

// Block is one ordered unit of extracted content: an optional heading plus
// the text that follows it.
type Block struct {
	Heading string
	Text    string
}

// Extractor is the extraction collaborator contract: raw document bytes in,
// ordered heading/text blocks out, or domain.ErrUnreadableDocument.
type Extractor interface {
	Extract(filename string, data []byte) ([]Block, error)
}

var (
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	clauseHeading   = regexp.MustCompile(`^(?i)(clause|article|section|part|schedule)\s+\d+[A-Za-z]?\b.*$`)
	numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S.*$`)
)

// TextExtractor extracts blocks from plain-text and markdown documents.
// Heading detection is heuristic: markdown hashes, clause/article labels,
// numbered headings, and short upper-case title lines.
type TextExtractor struct{}

// NewTextExtractor creates a TextExtractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract implements Extractor.
func (e *TextExtractor) Extract(filename string, data []byte) ([]Block, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnreadableDocument,
			"document is empty or unreadable", errEmpty(filename))
	}
	if !utf8.Valid(data) || bytes.ContainsRune(data, 0) {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnreadableDocument,
			"document is empty or unreadable", errBinary(filename))
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	var blocks []Block
	current := Block{}
	flush := func() {
		current.Text = strings.TrimSpace(current.Text)
		if current.Heading != "" || current.Text != "" {
			blocks = append(blocks, current)
		}
		current = Block{}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if heading, ok := detectHeading(trimmed); ok {
			flush()
			current.Heading = heading
			continue
		}
		if trimmed == "" {
			if current.Text != "" {
				current.Text += "\n"
			}
			continue
		}
		if current.Text != "" {
			current.Text += "\n"
		}
		current.Text += trimmed
	}
	flush()

	if len(blocks) == 0 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnreadableDocument,
			"document is empty or unreadable", errEmpty(filename))
	}
	return blocks, nil
}

// detectHeading reports whether a line looks like a heading and returns the
// heading text with markdown markers stripped.
func detectHeading(line string) (string, bool) {
	if line == "" || len(line) > 120 {
		return "", false
	}
	if m := markdownHeading.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if clauseHeading.MatchString(line) && !strings.HasSuffix(line, ".") {
		return line, true
	}
	if numberedHeading.MatchString(line) && len(line) < 80 && !strings.HasSuffix(line, ".") {
		return line, true
	}
	if isUpperTitle(line) {
		return line, true
	}
	return "", false
}

// isUpperTitle reports whether a short line is written entirely in upper
// case, the convention for unnumbered headings in filed legal documents.
func isUpperTitle(line string) bool {
	if len(line) > 60 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

type extractError struct {
	filename string
	reason   string
}

func (e *extractError) Error() string {
	return e.reason + ": " + e.filename
}

func errEmpty(filename string) error {
	return &extractError{filename: filename, reason: "no extractable text"}
}

func errBinary(filename string) error {
	return &extractError{filename: filename, reason: "binary or non-UTF-8 content"}
}
