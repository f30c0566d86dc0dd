package structuredoutput

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/contactgraph/pkg/interfaces"
)

type testContact struct {
	Name    string   `json:"name" description:"Display name"`
	Age     int      `json:"age,omitempty"`
	Active  bool     `json:"active"`
	Aliases []string `json:"aliases,omitempty"`
	Address struct {
		City string `json:"city"`
	} `json:"address,omitempty"`
	Contacts []testRef `json:"contacts,omitempty"`
	Internal string    `json:"-"`
}

type testRef struct {
	Name string `json:"name"`
}

func TestNewResponseFormat(t *testing.T) {
	format := NewResponseFormat(testContact{})

	assert.Equal(t, "testContact", format.Name)
	assert.Equal(t, "object", format.Schema["type"])

	properties, ok := format.Schema["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.NotContains(t, properties, "Internal")

	name, ok := properties["name"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "string", name["type"])
	assert.Equal(t, "Display name", name["description"])

	age := properties["age"].(map[string]interface{})
	assert.Equal(t, "integer", age["type"])
	active := properties["active"].(map[string]interface{})
	assert.Equal(t, "boolean", active["type"])

	aliases := properties["aliases"].(map[string]interface{})
	assert.Equal(t, "array", aliases["type"])
	assert.Equal(t, map[string]string{"type": "string"}, aliases["items"])

	address := properties["address"].(map[string]interface{})
	assert.Equal(t, "object", address["type"])
	nested := address["properties"].(map[string]interface{})
	assert.Contains(t, nested, "city")

	contacts := properties["contacts"].(map[string]interface{})
	items := contacts["items"].(map[string]interface{})
	assert.Equal(t, "object", items["type"])

	// Only fields without omitempty are required.
	assert.Equal(t, []string{"name", "active"}, format.Schema["required"])
}

func TestNewResponseFormatPointer(t *testing.T) {
	format := NewResponseFormat(&testRef{})
	assert.Equal(t, "testRef", format.Name)
	assert.Equal(t, []string{"name"}, format.Schema["required"])
}

func TestProfilePatchSchemaIsAllOptional(t *testing.T) {
	format := NewResponseFormat(interfaces.ProfilePatch{})

	required, ok := format.Schema["required"].([]string)
	require.True(t, ok)
	assert.Empty(t, required)

	properties := format.Schema["properties"].(map[string]interface{})
	assert.Contains(t, properties, "relatedPeople")
}
