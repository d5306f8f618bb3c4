package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestDetectOutputLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want language.Tag
	}{
		{"turkish", "Bu projede testleri nasıl hızlandırabilirim? Lütfen bir plan yap.", language.Turkish},
		{"german", "Bitte schreibe einen Test für die Funktion und prüfe das Ergebnis.", language.German},
		{"finnish", "Miten voin nopeuttaa tämä testejä ja myös korjata virheet?", language.Finnish},
		{"turkish exclusive letter", "Giriş sayfası", language.Turkish},
		{"turkish common words", "bu nedir", language.Turkish},
		{"turkish with shared umlauts", "dosya yükleme özelliği ekle", language.Turkish},
		{"turkish dotless i", "kullanıcı girişi ekle", language.Turkish},
		{"german sharp s", "Bitte prüfe die Größe", language.German},
		{"umlauts alone stay english", "Add a Müller test", language.English},
		{"english", "Write integration tests for the payment service", language.English},
		{"single marker word stays english", "Please write the tests for the die cast module", language.English},
		{"empty", "", language.English},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectOutputLanguage(tt.text))
		})
	}
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Turkish", LanguageName(language.Turkish))
	assert.Equal(t, "German", LanguageName(language.German))
	assert.Equal(t, "English", LanguageName(language.English))
}

func TestProjectMetadata(t *testing.T) {
	assert.Equal(t, "[]", ProjectMetadata(nil))
	assert.Equal(t, "[]", ProjectMetadata([]string{}))
	assert.Equal(t, `["Go","Python"]`, ProjectMetadata([]string{"Go", "Python"}))
}

func TestBuildUserMessage(t *testing.T) {
	assert.Equal(t, "fix the build", BuildUserMessage("fix the build", nil))

	got := BuildUserMessage("fix the build", []string{"Rust"})
	assert.Equal(t, "---\n🚨 SYSTEM DATA INJECTION 🚨\nPROJECT_METADATA: [\"Rust\"]\n---\nUSER INPUT: fix the build", got)
}

func TestBuildSystemPrompt(t *testing.T) {
	note := ProfileFor(ModeFast).Note

	english := BuildSystemPrompt(language.English, note, nil)
	assert.Contains(t, english, "The user is writing in English. Respond in English.")
	assert.Contains(t, english, "**MODE:** "+note)
	assert.Contains(t, english, "**Current PROJECT_METADATA:** []")
	assert.Contains(t, english, "**🎯 EXPERT ROLE:**")
	assert.True(t, strings.HasSuffix(english, "Wait for the input."))

	turkish := BuildSystemPrompt(language.Turkish, note, []string{"Python"})
	assert.Contains(t, turkish, "The user is writing in Turkish. Respond in Turkish.")
	assert.Contains(t, turkish, `**Current PROJECT_METADATA:** ["Python"]`)
}

func TestBuildRequestDetectsLanguage(t *testing.T) {
	req := BuildRequest("qwen2.5", "Bitte schreibe einen Test für die Funktion und prüfe das Ergebnis.", ModeFast, nil)

	assert.Equal(t, "qwen2.5", req.Model)
	assert.Contains(t, req.System, "Respond in German.")
	assert.Equal(t, 1000, *req.Options.NumPredict)
}
