// Package catalog holds the closed set of external tools the synthesizer can
// target. Each tool is an explicit descriptor with capability tags and the
// credential keys its integration requires; there is no runtime discovery.
package catalog

import "sort"

type Tool struct {
	Name           string
	Capabilities   []string
	CredentialKeys []string
}

// HasCapability reports whether the tool carries the given capability tag.
func (t Tool) HasCapability(cap string) bool {
	for _, c := range t.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

type Catalog struct {
	byName map[string]Tool
}

func New(tools []Tool) *Catalog {
	c := &Catalog{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		c.byName[t.Name] = t
	}
	return c
}

func (c *Catalog) Lookup(name string) (Tool, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Tools returns all descriptors sorted by name so iteration order is stable.
func (c *Catalog) Tools() []Tool {
	out := make([]Tool, 0, len(c.byName))
	for _, t := range c.byName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Default returns the built-in tool set.
func Default() *Catalog {
	return New([]Tool{
		{Name: "Slack", Capabilities: []string{"notify", "chat"}, CredentialKeys: []string{"API_KEY"}},
		{Name: "Email", Capabilities: []string{"notify", "email"}, CredentialKeys: []string{"SMTP_PASSWORD"}},
		{Name: "Gmail", Capabilities: []string{"notify", "email"}, CredentialKeys: []string{"API_KEY"}},
		{Name: "Twitter", Capabilities: []string{"publish", "social"}, CredentialKeys: []string{"API_KEY", "API_SECRET"}},
		{Name: "GitHub", Capabilities: []string{"publish", "repo"}, CredentialKeys: []string{"TOKEN"}},
		{Name: "Jira", Capabilities: []string{"store", "track"}, CredentialKeys: []string{"API_TOKEN"}},
		{Name: "Trello", Capabilities: []string{"store", "track"}, CredentialKeys: []string{"API_KEY"}},
		{Name: "Notion", Capabilities: []string{"store", "notes"}, CredentialKeys: []string{"API_KEY"}},
		{Name: "Spreadsheet", Capabilities: []string{"store", "spreadsheet"}, CredentialKeys: []string{"API_KEY"}},
		{Name: "AWS", Capabilities: []string{"store", "cloud", "transform"}, CredentialKeys: []string{"ACCESS_KEY_ID", "SECRET_ACCESS_KEY"}},
		{Name: "Dropbox", Capabilities: []string{"store", "file"}, CredentialKeys: []string{"ACCESS_TOKEN"}},
		{Name: "Webhook", Capabilities: []string{"publish", "webhook"}, CredentialKeys: []string{"URL"}},
		{Name: "HTTP API", Capabilities: []string{"fetch", "http", "transform", "process"}, CredentialKeys: []string{"API_KEY"}},
		{Name: "Database", Capabilities: []string{"store", "query", "process"}, CredentialKeys: []string{"DATABASE_URL"}},
	})
}
