package app

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"promptarch/events"
	"promptarch/store"
)

// Theme is the display theme preference
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Languages are the interface languages, the first being the default
var Languages = []language.Tag{
	language.English,
	language.Turkish,
	language.German,
	language.Finnish,
}

var languageMatcher = language.NewMatcher(Languages)

// Theme returns the current theme
func (a *App) Theme() Theme {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.theme
}

// Language returns the current interface language code, e.g. "en"
func (a *App) Language() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.language
}

// SetTheme stores the theme preference
func (a *App) SetTheme(theme Theme) error {
	if theme != ThemeDark && theme != ThemeLight {
		return fmt.Errorf("unknown theme %q (valid: %s, %s)", theme, ThemeDark, ThemeLight)
	}

	a.mu.Lock()
	a.theme = theme
	a.mu.Unlock()

	a.savePreference(store.KeyTheme, string(theme))
	a.emitPreferences()
	return nil
}

// ToggleTheme switches between dark and light and returns the new theme
func (a *App) ToggleTheme() Theme {
	next := ThemeLight
	if a.Theme() == ThemeLight {
		next = ThemeDark
	}
	_ = a.SetTheme(next)
	return next
}

// SetLanguage stores the interface language preference
func (a *App) SetLanguage(code string) error {
	tag, err := language.Parse(code)
	if err == nil {
		base, _ := tag.Base()
		tag = language.Make(base.String())
	}
	if err != nil || !isSupported(tag) {
		return fmt.Errorf("unsupported language %q (valid: %s)", code, strings.Join(languageCodes(), ", "))
	}

	a.mu.Lock()
	a.language = tag.String()
	a.mu.Unlock()

	a.savePreference(store.KeyLanguage, tag.String())
	a.emitPreferences()
	return nil
}

// loadPreferences reads the stored theme and language; the language falls
// back to the locale environment and then English
func (a *App) loadPreferences() {
	theme := ThemeDark
	if v, ok := a.loadPreference(store.KeyTheme); ok && Theme(v) == ThemeLight {
		theme = ThemeLight
	}

	lang := ""
	if v, ok := a.loadPreference(store.KeyLanguage); ok {
		if tag, err := language.Parse(v); err == nil && isSupported(tag) {
			lang = tag.String()
		}
	}
	if lang == "" {
		lang = localeLanguage(os.Getenv("LC_ALL"), os.Getenv("LANG"))
	}

	a.theme = theme
	a.language = lang
}

func (a *App) loadPreference(key string) (string, bool) {
	v, ok, err := a.store.Get(key)
	if err != nil {
		a.logger.Warn("failed to load preference", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, ok
}

func (a *App) savePreference(key, value string) {
	if err := a.store.Set(key, value); err != nil {
		a.logger.Warn("failed to save preference", zap.String("key", key), zap.Error(err))
	}
}

func (a *App) emitPreferences() {
	a.bus.Emit(events.PreferencesChanged, events.Preferences{
		Theme:    string(a.Theme()),
		Language: a.Language(),
	})
}

// localeLanguage matches POSIX locale values such as "tr_TR.UTF-8" against
// the supported languages, taking the first that parses
func localeLanguage(locales ...string) string {
	for _, locale := range locales {
		locale, _, _ = strings.Cut(locale, ".")
		locale, _, _ = strings.Cut(locale, "@")
		if locale == "" || locale == "C" || locale == "POSIX" {
			continue
		}
		tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
		if err != nil {
			continue
		}
		_, index, confidence := languageMatcher.Match(tag)
		if confidence == language.No {
			return Languages[0].String()
		}
		return Languages[index].String()
	}
	return Languages[0].String()
}

func isSupported(tag language.Tag) bool {
	for _, l := range Languages {
		if l == tag {
			return true
		}
	}
	return false
}

func languageCodes() []string {
	codes := make([]string, len(Languages))
	for i, l := range Languages {
		codes[i] = l.String()
	}
	return codes
}
