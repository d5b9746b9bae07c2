package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrainingItems(t *testing.T) {
	src := `
items:
  - label: "Sicurezza in acqua"
    sort: 5
  - label: "  Primo soccorso  "
  - label: Uso del defibrillatore
    sort: 1
`
	items, err := ParseTrainingItems(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Sicurezza in acqua", items[0].Label)
	assert.Equal(t, 5, items[0].Sort)
	assert.Equal(t, "Primo soccorso", items[1].Label)
	assert.Equal(t, 20, items[1].Sort)
	assert.Equal(t, 1, items[2].Sort)
}

func TestParseTrainingItems_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty label":   "items:\n  - label: \"\"\n",
		"duplicate":     "items:\n  - label: A\n  - label: a\n",
		"unknown field": "items:\n  - label: A\n    color: red\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTrainingItems(strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}
