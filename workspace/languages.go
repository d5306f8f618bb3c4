package workspace

import (
	"path"
	"sort"
	"strings"
)

// supportedLanguages is the allow-list every detected label is filtered through
var supportedLanguages = map[string]bool{
	"JavaScript": true, "TypeScript": true, "Python": true, "Java": true,
	"Rust": true, "Go": true, "C": true, "C++": true, "CSharp": true,
	"PHP": true, "Ruby": true, "Swift": true, "Kotlin": true, "Dart": true,
	"HTML": true, "CSS": true, "SCSS": true, "Vue": true, "React": true,
	"Angular": true, "Svelte": true, "NextJS": true, "NodeJS": true,
}

var extensionToLanguage = map[string]string{
	".js":  "JavaScript",
	".jsx": "JavaScript",
	".mjs": "JavaScript",
	".cjs": "JavaScript",
	".ts":  "TypeScript",
	".tsx": "TypeScript",

	".py":  "Python",
	".pyw": "Python",
	".pyi": "Python",

	".java":  "Java",
	".class": "Java",
	".jar":   "Java",

	".rs": "Rust",
	".go": "Go",

	".c":   "C",
	".h":   "C",
	".cpp": "C++",
	".cxx": "C++",
	".cc":  "C++",
	".hpp": "C++",

	".cs":     "CSharp",
	".csproj": "CSharp",
	".sln":    "CSharp",

	".php":   "PHP",
	".phtml": "PHP",
	".rb":    "Ruby",
	".rbw":   "Ruby",
	".swift": "Swift",
	".kt":    "Kotlin",
	".kts":   "Kotlin",
	".dart":  "Dart",

	".html":   "HTML",
	".htm":    "HTML",
	".css":    "CSS",
	".less":   "CSS",
	".scss":   "SCSS",
	".sass":   "SCSS",
	".vue":    "Vue",
	".svelte": "Svelte",
}

// configToLanguages maps a config file name to the labels its presence implies
var configToLanguages = map[string][]string{
	"package.json":     {"NodeJS"},
	"Cargo.toml":       {"Rust"},
	"go.mod":           {"Go"},
	"requirements.txt": {"Python"},
	"pyproject.toml":   {"Python"},
	"Pipfile":          {"Python"},
	"setup.py":         {"Python"},
	"pom.xml":          {"Java"},
	"build.gradle":     {"Java"},
	"build.gradle.kts": {"Java", "Kotlin"},
	"CMakeLists.txt":   {"C++"},
	"Makefile":         {"C++"},
	"makefile":         {"C++"},
	"composer.json":    {"PHP"},
	"Gemfile":          {"Ruby"},
	"Rakefile":         {"Ruby"},
	"Package.swift":    {"Swift"},
	"pubspec.yaml":     {"Dart"},
	"pubspec.yml":      {"Dart"},
}

// frameworkMarkers maps package.json dependency names to framework labels
var frameworkMarkers = map[string]string{
	"react":              "React",
	"react-dom":          "React",
	"vue":                "Vue",
	"@vitejs/plugin-vue": "Vue",
	"@angular/core":      "Angular",
	"next":               "NextJS",
	"svelte":             "Svelte",
	"@sveltejs/kit":      "Svelte",
	"typescript":         "TypeScript",
	"@types/node":        "TypeScript",
}

// DetectLanguages returns the sorted, deduplicated language and framework
// labels implied by a file tree and the config files found at its root.
// Malformed input yields fewer labels, never an error.
func DetectLanguages(tree []*FileNode, configs ConfigFiles) []string {
	found := make(map[string]bool)

	var visit func(nodes []*FileNode)
	visit = func(nodes []*FileNode) {
		for _, node := range nodes {
			if node == nil {
				continue
			}
			switch node.Kind {
			case KindFile:
				if lang, ok := extensionToLanguage[strings.ToLower(path.Ext(node.Name))]; ok {
					found[lang] = true
				}
			case KindDirectory:
				visit(node.Children)
			}
		}
	}
	visit(tree)

	for name := range configs {
		for _, lang := range configToLanguages[name] {
			found[lang] = true
		}
	}
	for dep := range packageDependencies(configs, true) {
		if lang, ok := frameworkMarkers[dep]; ok {
			found[lang] = true
		}
	}

	labels := make([]string, 0, len(found))
	for lang := range found {
		if supportedLanguages[lang] {
			labels = append(labels, lang)
		}
	}
	sort.Strings(labels)
	return labels
}

// IsSupportedLanguage reports whether label is on the detector's allow-list
func IsSupportedLanguage(label string) bool {
	return supportedLanguages[label]
}

// packageDependencies returns the dependency names declared in a parsed
// package.json, optionally including devDependencies
func packageDependencies(configs ConfigFiles, includeDev bool) map[string]bool {
	deps := make(map[string]bool)
	pkg, ok := configs["package.json"].(map[string]any)
	if !ok {
		return deps
	}

	sections := []string{"dependencies"}
	if includeDev {
		sections = append(sections, "devDependencies")
	}
	for _, section := range sections {
		entries, ok := pkg[section].(map[string]any)
		if !ok {
			continue
		}
		for name := range entries {
			deps[name] = true
		}
	}
	return deps
}
