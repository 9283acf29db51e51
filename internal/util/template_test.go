package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_Helpers(t *testing.T) {
	tmpl := MustParse("t", "{{numbered .Items}}|{{quoted .Items}}")

	out, err := tmpl.Render(map[string][]string{"Items": {"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "1. a\n2. b|'a', 'b'", out)

	out, err = tmpl.Render(map[string][]string{"Items": nil})
	require.NoError(t, err)
	assert.Equal(t, "N/A|N/A", out)
}

func TestTemplate_MissingKey(t *testing.T) {
	tmpl := MustParse("t", "{{.Name}}")
	_, err := tmpl.Render(map[string]string{})
	assert.Error(t, err)
	assert.Panics(t, func() { MustParse("broken", "{{.Name") })
}
