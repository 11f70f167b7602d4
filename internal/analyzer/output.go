package analyzer

import (
	"strings"
	"unicode"
)

// maxInputChars bounds each workflow input field so oversized sessions do
// not blow past the engine's input limits.
const maxInputChars = 50000

const emptyOutputFallback = "Analysis completed but no content was generated. Please try again."

// TruncateInput caps a workflow input at maxInputChars, cutting on a rune
// boundary.
func TruncateInput(s string) string {
	if len(s) <= maxInputChars {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxInputChars {
		return s
	}
	return string(runes[:maxInputChars])
}

// ProcessOutput normalizes raw workflow output into displayable markdown.
// Markdown passes through untouched, bare keyword lists become a bulleted
// section, and plain prose gets a heading.
func ProcessOutput(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return emptyOutputFallback
	}

	if looksLikeMarkdown(text) {
		return text
	}

	if items, ok := splitKeywordList(text); ok {
		var b strings.Builder
		b.WriteString("## Key Insights\n\n")
		for _, item := range items {
			b.WriteString("- ")
			b.WriteString(item)
			b.WriteString("\n")
		}
		return strings.TrimRight(b.String(), "\n")
	}

	return "## Analysis Results\n\n" + text
}

func looksLikeMarkdown(text string) bool {
	if strings.HasPrefix(text, "#") || strings.HasPrefix(text, "- ") || strings.HasPrefix(text, "* ") {
		return true
	}
	return strings.Contains(text, "\n#") ||
		strings.Contains(text, "\n- ") ||
		strings.Contains(text, "\n* ") ||
		strings.Contains(text, "**")
}

// splitKeywordList detects short comma- or newline-separated keyword output
// (three or more items, each at most four words, no sentence punctuation).
func splitKeywordList(text string) ([]string, bool) {
	if strings.ContainsAny(text, ".!?") {
		return nil, false
	}

	sep := ","
	if strings.Contains(text, "\n") {
		sep = "\n"
	}

	parts := strings.Split(text, sep)
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if len(strings.Fields(item)) > 4 {
			return nil, false
		}
		items = append(items, item)
	}
	if len(items) < 3 {
		return nil, false
	}
	return items, true
}

// Summarize produces a short plain-text summary of processed output: the
// first limit runes of body text with markdown markers stripped, cut at a
// word boundary.
func Summarize(text string, limit int) string {
	var parts []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#*- ")
		line = strings.ReplaceAll(line, "**", "")
		if line != "" {
			parts = append(parts, line)
		}
	}
	plain := strings.Join(parts, " ")

	runes := []rune(plain)
	if len(runes) <= limit {
		return plain
	}

	cut := limit
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = limit
	}
	return strings.TrimSpace(string(runes[:cut])) + "..."
}
