package session

import (
	"regexp"
	"strings"
)

// Strategy pulls the final prompt out of decorated model output. Extract
// returns false when the output does not have the shape it handles.
type Strategy struct {
	Name    string
	Extract func(text string) (string, bool)
}

// Strategies are tried in order by ExtractPrompt; the first match wins
var Strategies = []Strategy{
	{Name: "fenced-markdown", Extract: extractFencedMarkdown},
	{Name: "legacy-heading", Extract: extractLegacyHeading},
	{Name: "strip-boilerplate", Extract: stripBoilerplate},
}

var (
	// FencedMarkdownPattern captures the body of a ```markdown block
	FencedMarkdownPattern = regexp.MustCompile("(?s)```markdown\\s*\\n(.+?)\\n```")

	// LegacyHeadingPattern captures the section under the older
	// "optimized prompt" heading, up to the variables heading or the end
	LegacyHeadingPattern = regexp.MustCompile(`(?s)#\s*🚀\s*(?:OPTİMİZE EDİLMİŞ PROMPT|OPTIMIZED PROMPT)\s*\n\n(.+?)(?:\n\n#\s*🧩|$)`)

	// BoilerplatePatterns are removed in order by the last strategy
	BoilerplatePatterns = []*regexp.Regexp{
		regexp.MustCompile("(?i)```markdown\\s*"),
		regexp.MustCompile("```\\s*"),
		regexp.MustCompile(`(?i)#\s*🚀\s*(?:OPTİMİZE EDİLMİŞ PROMPT|OPTIMIZED PROMPT)\s*\n\n`),
		regexp.MustCompile(`(?s)#\s*🧩\s*(?:DEĞİŞKENLER|VARIABLES).*$`),
		regexp.MustCompile(`(?s)#\s*⚙\x{FE0F}?\s*(?:MÜHENDİS NOTLARI|ENGINEER(?:'S|ING)? NOTES).*$`),
		regexp.MustCompile(`(?i)🎯\s*(?:OPTİMİZE EDİLMİŞ PROMPT|OPTIMIZED PROMPT):?\s*`),
		regexp.MustCompile(`(?s)🔍\s*(?:YAPILAN İYİLEŞTİRMELER|IMPROVEMENTS(?: MADE)?):?\s*.*$`),
	}
)

// ExtractPrompt returns the usable prompt inside model output
func ExtractPrompt(text string) string {
	for _, s := range Strategies {
		if out, ok := s.Extract(text); ok {
			return out
		}
	}
	return strings.TrimSpace(text)
}

func extractFencedMarkdown(text string) (string, bool) {
	return firstGroup(FencedMarkdownPattern, text)
}

func extractLegacyHeading(text string) (string, bool) {
	return firstGroup(LegacyHeadingPattern, text)
}

func stripBoilerplate(text string) (string, bool) {
	for _, re := range BoilerplatePatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func firstGroup(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	out := strings.TrimSpace(m[1])
	return out, out != ""
}
