package stealth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPersonaLanguages(t *testing.T) {
	p := Persona{AcceptLanguage: "ja-JP, ja;q=0.9,en;q=0.8"}
	assert.Equal(t, []string{"ja-JP", "ja", "en"}, p.Languages())
	assert.Nil(t, Persona{}.Languages())
}

func TestPersonaScript(t *testing.T) {
	t.Run("languages are substituted", func(t *testing.T) {
		script := Persona{AcceptLanguage: "en-US,en;q=0.9"}.Script()
		assert.Contains(t, script, `const langs = ["en-US","en"];`)
		assert.NotContains(t, script, "__LANGUAGES__")
		assert.Contains(t, script, "'webdriver'")
	})

	t.Run("no languages yields an empty list", func(t *testing.T) {
		script := Persona{}.Script()
		assert.Contains(t, script, "const langs = [];")
	})
}

func TestApply(t *testing.T) {
	t.Run("script only for an empty persona", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		tasks := Apply(Persona{}, zap.New(core))

		assert.Len(t, tasks, 1)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "Applying browser persona.", logs.All()[0].Message)
	})

	t.Run("full persona adds overrides", func(t *testing.T) {
		tasks := Apply(Persona{
			UserAgent:      "Mozilla/5.0 test",
			AcceptLanguage: "ja-JP,ja;q=0.9",
		}, zap.NewNop())

		// Script, user agent, locale and headers.
		assert.Len(t, tasks, 4)
	})
}
