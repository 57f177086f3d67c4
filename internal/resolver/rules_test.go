package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRules(t *testing.T) {
	src := `
# POS shorthand
^srd[ /]wh.*  => Sourdough Loaf
cake sl(ice)? => Carrot Cake Slice
`
	rules, err := ParseRules(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.True(t, rules[0].Pattern.MatchString("srd wh 800g"))
	assert.True(t, rules[0].Pattern.MatchString("SRD/WH"))
	assert.False(t, rules[0].Pattern.MatchString("rye 800g"))
	assert.Equal(t, "Sourdough Loaf", rules[0].Canonical)
	assert.Equal(t, "Carrot Cake Slice", rules[1].Canonical)
}

func TestParseRules_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing arrow", "srd wh Sourdough Loaf\n"},
		{"empty canonical", "srd wh =>\n"},
		{"bad regexp", "srd[ => Sourdough Loaf\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules(strings.NewReader(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestLoadRules_MissingFileIsEmpty(t *testing.T) {
	rules, err := LoadRules("/nonexistent/canon.rules")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestResolve_RuleBeatsFuzzy(t *testing.T) {
	st := newTestStore(t)
	item := seedItem(t, st, "Sourdough Loaf")
	r := newTestResolver(t, st)

	rules, err := ParseRules(strings.NewReader("^srd => Sourdough Loaf\n"))
	require.NoError(t, err)
	r.UseRules(rules)

	// Nothing fuzzy matching would recover from this label.
	res, err := r.Resolve(t.Context(), "SRD/WH 800g")
	require.NoError(t, err)
	assert.Equal(t, item.ID, res.ItemID)
	assert.False(t, res.Created)

	// The raw label is remembered as an alias afterwards.
	aliases, err := st.ListItemAliases(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Contains(t, aliases, "srd/wh 800g")
}

func TestResolve_RuleMintsMissingCanonical(t *testing.T) {
	st := newTestStore(t)
	r := newTestResolver(t, st)

	rules, err := ParseRules(strings.NewReader("^srd => Sourdough Loaf\n"))
	require.NoError(t, err)
	r.UseRules(rules)

	res, err := r.Resolve(t.Context(), "srd wh")
	require.NoError(t, err)
	assert.True(t, res.Created)

	created, err := st.GetItem(t.Context(), res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, "Sourdough Loaf", created.CanonicalName)
}
