package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesFields(t *testing.T) {
	r := New()

	subject, body, err := r.Render("Hello {{name}}", "Hi {{name}}", map[string]interface{}{
		"name": "Test",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello Test", subject)
	assert.Equal(t, "Hi Test", body)
}

func TestRenderFriendlyDefaults(t *testing.T) {
	r := New()

	subject, body, err := r.Render("Hello {{name}}", "Hi {{first_name}} at {{company}}", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", subject)
	assert.Equal(t, "Hi there at your company", body)
}

func TestRenderUnknownVariableIsEmpty(t *testing.T) {
	r := New()

	subject, _, err := r.Render("X{{nonexistent_var}}Y", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "XY", subject)
}

func TestBuildContextJoinsName(t *testing.T) {
	ctx := BuildContext(map[string]interface{}{
		"first_name": "Ada",
		"last_name":  "Lovelace",
	})
	assert.Equal(t, "Ada Lovelace", ctx["name"])
}

func TestBuildContextSplitsName(t *testing.T) {
	ctx := BuildContext(map[string]interface{}{"name": "Ada Lovelace"})
	assert.Equal(t, "Ada", ctx["first_name"])
	assert.Equal(t, "Lovelace", ctx["last_name"])
}

func TestBuildContextProviderFallsBackToCompany(t *testing.T) {
	ctx := BuildContext(map[string]interface{}{"provider": "Acme Hosting"})
	assert.Equal(t, "Acme Hosting", ctx["company"])
}

func TestBuildContextUnsubscribeLinkDefault(t *testing.T) {
	ctx := BuildContext(nil)
	assert.Equal(t, "#", ctx["unsubscribe_link"])
}

func TestAppendSignature(t *testing.T) {
	assert.Equal(t, "<p>Hi</p><br><p>Best</p>", AppendSignature("<p>Hi</p>", "<p>Best</p>"))
	assert.Equal(t, "<p>Hi</p>", AppendSignature("<p>Hi</p>", ""))
}
