package loader

import (
	"regexp"
	"strings"

	"rag-agent/internal/domain"
)

// parseMarkdown reads a markdown file with the same encoding fallback
// as plain text, then strips lightweight markup so the splitter and
// embedder see prose rather than syntax.
func parseMarkdown(path string) ([]domain.Document, error) {
	raw, err := readTextFile(path)
	if err != nil {
		return nil, err
	}
	return []domain.Document{{Text: stripMarkdown(raw), SourcePath: path, Kind: domain.LoaderMarkdown}}, nil
}

var (
	mdFenceRe      = regexp.MustCompile("(?m)^```[^\n]*$")
	mdHeadingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquoteRe = regexp.MustCompile(`(?m)^>\s?`)
	mdHRuleRe      = regexp.MustCompile(`(?m)^(\*{3,}|-{3,}|_{3,})\s*$`)
	mdImageRe      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLinkRe       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdEmphasisRe   = regexp.MustCompile(`(\*\*|__|\*|_)([^*_]+)(\*\*|__|\*|_)`)
	mdInlineCodeRe = regexp.MustCompile("`([^`]*)`")
)

// stripMarkdown removes the markup that carries no prose content.
// Code block bodies are preserved, only the fence lines are dropped.
func stripMarkdown(text string) string {
	text = mdFenceRe.ReplaceAllString(text, "")
	text = mdHeadingRe.ReplaceAllString(text, "")
	text = mdBlockquoteRe.ReplaceAllString(text, "")
	text = mdHRuleRe.ReplaceAllString(text, "")
	text = mdImageRe.ReplaceAllString(text, "$1")
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = mdEmphasisRe.ReplaceAllString(text, "$2")
	text = mdInlineCodeRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
