package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfile(t *testing.T) {
	input := []byte("---\nfirst_name: Ada\nlast_name: Lovelace\nemail: ada@example.com\nskills:\n  - go\n  - sql\ncv: ada.pdf\n---\n\nMet at the meetup.\n- strong systems background\n")
	p, err := ParseProfile(input)
	require.NoError(t, err)

	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, []string{"go", "sql"}, p.Skills)
	assert.Equal(t, "ada.pdf", p.CV)
	assert.Equal(t, "Met at the meetup.\n- strong systems background", p.Notes)
}

func TestParseProfileWithoutFrontmatter(t *testing.T) {
	_, err := ParseProfile([]byte("# Ada\nno metadata\n"))
	assert.ErrorIs(t, err, ErrNoFrontmatter)

	_, err = ParseProfile([]byte("---\nfirst_name: Ada\nnever closed\n"))
	assert.ErrorIs(t, err, ErrNoFrontmatter)
}

func TestParseProfileInvalidYAML(t *testing.T) {
	_, err := ParseProfile([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoFrontmatter)
}

func TestProfileInputDefaultsSource(t *testing.T) {
	p := &Profile{FirstName: "Ada", Email: "a@b.c"}
	assert.Equal(t, "intake", p.Input("intake").Source)

	p.Source = "referral"
	assert.Equal(t, "referral", p.Input("intake").Source)
}
