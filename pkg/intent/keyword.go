package intent

import (
	"context"
	"strings"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

// Action names shared between the extractor and the tool resolver.
const (
	SendNotificationAction = "send_notification"
	StoreDataAction        = "store_data"
	TransformDataAction    = "transform_data"
	PublishContentAction   = "publish_content"
	ProcessDataAction      = "process_data"
)

// toolMention maps a prompt keyword to a concrete tool candidate and the
// action that tool typically performs. Evaluated in order so extraction is
// deterministic.
type toolMention struct {
	keyword string
	tool    string
	action  string
}

var toolMentions = []toolMention{
	{"slack", "Slack", SendNotificationAction},
	{"gmail", "Gmail", SendNotificationAction},
	{"email", "Email", SendNotificationAction},
	{"twitter", "Twitter", PublishContentAction},
	{"github", "GitHub", PublishContentAction},
	{"jira", "Jira", StoreDataAction},
	{"trello", "Trello", StoreDataAction},
	{"notion", "Notion", StoreDataAction},
	{"google sheets", "Spreadsheet", StoreDataAction},
	{"spreadsheet", "Spreadsheet", StoreDataAction},
	{"aws", "AWS", StoreDataAction},
	{"dropbox", "Dropbox", StoreDataAction},
	{"webhook", "Webhook", PublishContentAction},
	{"database", "Database", StoreDataAction},
}

type triggerRule struct {
	name     string
	keywords []string
}

var triggerRules = []triggerRule{
	{"schedule", []string{"schedule", "daily", "weekly", "hourly", "every"}},
	{"webhook", []string{"webhook", "http call", "api call"}},
	{"email", []string{"receive an email", "incoming email"}},
	{"record_watch", []string{"new row", "row is added", "new record", "new entry"}},
	{"file_watch", []string{"file", "upload", "new document"}},
}

type actionRule struct {
	action   string
	keywords []string
}

var actionRules = []actionRule{
	{SendNotificationAction, []string{"notify", "alert", "message"}},
	{StoreDataAction, []string{"save", "store"}},
	{TransformDataAction, []string{"transform", "convert"}},
	{PublishContentAction, []string{"post", "publish", "share"}},
}

// KeywordExtractor is a deterministic, rule-based intent engine. It mirrors
// the behavior of the hosted understanding service closely enough to act as
// the default engine when no service URL is configured, and it is the fixture
// the pipeline tests run against.
type KeywordExtractor struct{}

func NewKeywordExtractor() *KeywordExtractor { return &KeywordExtractor{} }

func (e *KeywordExtractor) Extract(_ context.Context, prompt string, _ models.InputType) (Intent, error) {
	lower := strings.ToLower(prompt)

	var steps []Step
	seenActions := make(map[string]bool)
	for _, m := range toolMentions {
		if strings.Contains(lower, m.keyword) && !seenTool(steps, m.tool) {
			steps = append(steps, Step{Action: m.action, ToolCandidate: m.tool})
			seenActions[m.action] = true
		}
	}

	// Actions named without a concrete tool become unresolved steps for the
	// tool resolver, unless a mention already covers the same action.
	for _, r := range actionRules {
		if seenActions[r.action] {
			continue
		}
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				steps = append(steps, Step{Action: r.action})
				seenActions[r.action] = true
				break
			}
		}
	}

	if len(steps) == 0 {
		steps = []Step{{Action: ProcessDataAction}}
	}

	trigger := "manual"
	for _, r := range triggerRules {
		if containsAny(lower, r.keywords) {
			trigger = r.name
			break
		}
	}

	confidence := 0.35
	for _, s := range steps {
		if s.ToolCandidate != "" {
			confidence += 0.2
		}
	}
	if trigger != "manual" {
		confidence += 0.15
	}
	if confidence > 0.95 {
		confidence = 0.95
	}

	return Intent{Steps: steps, Trigger: trigger, Confidence: confidence}, nil
}

func seenTool(steps []Step, tool string) bool {
	for _, s := range steps {
		if s.ToolCandidate == tool {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
