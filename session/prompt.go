package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"promptarch/llm"
)

// languageMarkers hold the letters and common words that point to a language.
// Exclusive letters belong to no other supported language and settle the
// match on their own.
type languageMarkers struct {
	tag       language.Tag
	exclusive string
	letters   string
	words     map[string]bool
}

func newMarkers(tag language.Tag, exclusive, letters string, words ...string) languageMarkers {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return languageMarkers{tag: tag, exclusive: exclusive, letters: letters, words: set}
}

// outputLanguages are checked in order; ties go to the earlier one
var outputLanguages = []languageMarkers{
	newMarkers(language.Turkish, "çğıİşÇĞŞ", "öüÖÜ",
		"ve", "ile", "için", "bir", "bu", "şu", "nasıl", "ne", "nedir", "neden", "nerede", "hangi",
		"yap", "et", "ol", "var", "yok", "değil", "gibi", "daha", "çok", "mı", "mi"),
	newMarkers(language.German, "ß", "äÄüÜöÖ",
		"und", "ist", "nicht", "mit", "für", "das", "die", "der", "ein", "eine",
		"wie", "bitte", "ich", "auf", "auch", "werden", "können", "soll"),
	newMarkers(language.Finnish, "", "äÄöÖåÅ",
		"ja", "on", "ei", "että", "mitä", "miten", "tämä", "kuinka", "myös",
		"tai", "kanssa", "ole", "olla", "joka", "voi"),
}

// minLanguageScore is the score a language needs to beat the English default
const minLanguageScore = 3

// DetectOutputLanguage guesses the language a prompt is written in from
// diacritics and common words. Anything without enough markers is English.
func DetectOutputLanguage(text string) language.Tag {
	best, bestScore := language.English, minLanguageScore-1
	for _, m := range outputLanguages {
		if score := m.score(text); score > bestScore {
			best, bestScore = m.tag, score
		}
	}
	return best
}

// score counts shared marker letters once each, common words twice and
// exclusive letters enough to pass minLanguageScore
func (m languageMarkers) score(text string) int {
	score := 0
	for _, r := range text {
		switch {
		case strings.ContainsRune(m.exclusive, r):
			score += minLanguageScore
		case strings.ContainsRune(m.letters, r):
			score++
		}
	}
	// Casers are stateful, so each call gets its own.
	words := strings.FieldsFunc(cases.Lower(m.tag).String(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if m.words[w] {
			score += 2
		}
	}
	return score
}

// LanguageName returns the English name of tag, e.g. "Turkish"
func LanguageName(tag language.Tag) string {
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

// ProjectMetadata encodes the tech stack as the JSON array given to the model
func ProjectMetadata(techStack []string) string {
	if len(techStack) == 0 {
		return "[]"
	}
	data, err := json.Marshal(techStack)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// BuildUserMessage prefixes the raw prompt with the project metadata block
// when a tech stack is known
func BuildUserMessage(raw string, techStack []string) string {
	metadata := ProjectMetadata(techStack)
	if metadata == "[]" {
		return raw
	}
	return fmt.Sprintf("---\n🚨 SYSTEM DATA INJECTION 🚨\nPROJECT_METADATA: %s\n---\nUSER INPUT: %s", metadata, raw)
}

// BuildRequest assembles the generation request for one refinement
func BuildRequest(model, raw string, mode Mode, techStack []string) llm.Request {
	profile := ProfileFor(mode)
	return llm.Request{
		Model:   model,
		Prompt:  BuildUserMessage(raw, techStack),
		System:  BuildSystemPrompt(DetectOutputLanguage(raw), profile.Note, techStack),
		Options: profile.Options,
	}
}

// BuildSystemPrompt returns the instruction that turns the model into a
// prompt architect for the given output language, mode and tech stack
func BuildSystemPrompt(lang language.Tag, modeNote string, techStack []string) string {
	var b strings.Builder

	b.WriteString("### SYSTEM ROLE: CONTEXT-AWARE PROMPT ARCHITECT\n\n")
	b.WriteString("You detect the user's technology stack and produce instructions hard-wired to it.\n\n")

	b.WriteString("**Output Language:** ")
	if lang == language.English {
		b.WriteString("The user is writing in English. Respond in English.")
	} else {
		name := LanguageName(lang)
		fmt.Fprintf(&b, "The user is writing in %s. Respond in %s. Technical terms (API, HTTP, JSON, TypeScript, React and the like) stay as they are.", name, name)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "**MODE:** %s\n\n", modeNote)

	b.WriteString("**INPUT DATA:**\n\n")
	b.WriteString("1. **USER INPUT:** the user's request.\n")
	b.WriteString("2. **PROJECT_METADATA:** the detected languages and frameworks.\n\n")
	fmt.Fprintf(&b, "**Current PROJECT_METADATA:** %s\n\n---\n\n", ProjectMetadata(techStack))

	b.WriteString(systemPromptBody)
	return b.String()
}

const systemPromptBody = `### NO-PLACEHOLDER POLICY

Never emit placeholders such as ` + "`[DEPENDENCY_FILE]`, `[FRAMEWORK]` or `[TEST_TOOL]`" + `. Read PROJECT_METADATA and write the real file and technology names instead:

* **Swift/iOS**: Package.swift / Podfile, SwiftUI / UIKit, XCTest, Archive / App Store Connect.
* **Python**: requirements.txt / pyproject.toml, Django / Flask / FastAPI, pytest / unittest.
* **Node/JS/Next.js**: package.json, Next.js / React / Express, Jest / Vitest.
* **Flutter**: pubspec.yaml, Flutter / Dart, flutter test.
* **Go**: go.mod, Gin / Echo, go test.
* **PHP/Laravel**: composer.json, Laravel, PHPUnit.

Only when the metadata is empty or the technology is unknown may you fall back to generic terms.

### HYBRID STACKS

When the metadata holds both backend languages (Python, Java, Go, PHP, Ruby, C#, Node.js/Express) and frontend ones (HTML, CSS, JavaScript, React, Vue, Angular, TypeScript), take the role of a Full Stack Engineer, weight the tasks roughly 60% backend and 40% frontend, and check the integration points: API contracts, authentication flow and data validation.

### HIERARCHY PROTOCOL

With mixed signals, the higher rank wins:

1. **Mobile/native** (Dart, Flutter, Swift, Kotlin, Objective-C, React Native): ignore HTML, CSS and JavaScript; they are web views or assets. Role: Mobile Developer.
2. **Systems/backend** (C, C++, Rust, Go, C#): treat HTML as reporting output, not a web project. Role: Systems Engineer or Backend Developer.
3. **Web** (React, Next.js, Vue, Angular, HTML, CSS): applies only when ranks 1 and 2 are absent.

Example: ` + "`[Dart, HTML, C++]`" + ` is a mobile (Flutter) project. Do not suggest React.

### PROCESS

1. Map the metadata to concrete files, tools and jargon.
2. Expand the user's intent.
3. Pick the jargon of the detected language.
4. Fill in the template below with no variables left.

### LANGUAGE LOCK

Write the prompt in the language of USER INPUT. Do not drift into English because of dense technical vocabulary; framework names, technology names and abbreviations stay unchanged, everything else follows the user's language.

### OUTPUT FORMAT

**Never answer the user's question. Only produce a prompt.** If the user asks a question, turn it into a prompt.

Reply only with the template below, in Markdown:

` + "```markdown" + `
**🎯 EXPERT ROLE:**
(A title that fits the metadata, e.g. Senior iOS Engineer, Senior Next.js Architect, Senior Python Developer)

**📋 TASK DETAILS:**
(No square brackets may remain; every term is a real one.)
1. ...
2. ...
3. ...

**📦 EXPECTED FORMAT:**
(JSON, Markdown table, code block, ...)

**🚨 CONSTRAINTS:**
* No explanations.
* (A constraint specific to the metadata, e.g. "Use Server Components; avoid needless Client Components" for Next.js.)
` + "```" + `

Never default to popular technologies (Next.js, Node.js, package.json) the metadata does not mention.

Wait for the input.`
