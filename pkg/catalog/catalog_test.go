package catalog

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalog(t *testing.T) {
	c := Default()

	t.Run("Lookup", func(t *testing.T) {
		slack, ok := c.Lookup("Slack")
		assert.True(t, ok)
		assert.Equal(t, []string{"API_KEY"}, slack.CredentialKeys)
		assert.True(t, slack.HasCapability("notify"))
		assert.False(t, slack.HasCapability("store"))

		_, ok = c.Lookup("Nonexistent")
		assert.False(t, ok)
	})

	t.Run("ToolsSortedByName", func(t *testing.T) {
		tools := c.Tools()
		assert.NotEmpty(t, tools)
		assert.True(t, sort.SliceIsSorted(tools, func(i, j int) bool {
			return tools[i].Name < tools[j].Name
		}))
	})

	t.Run("EveryToolDeclaresCredentials", func(t *testing.T) {
		for _, tool := range c.Tools() {
			assert.NotEmpty(t, tool.CredentialKeys, "tool %s has no credential keys", tool.Name)
			assert.NotEmpty(t, tool.Capabilities, "tool %s has no capabilities", tool.Name)
		}
	})
}
