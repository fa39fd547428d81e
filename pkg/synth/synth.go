// Package synth renders a deterministic source skeleton from an ordered set
// of tool bindings. The same bindings always produce byte-identical output.
package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Abzali8806/Cue-MVP-api/pkg/intent"
	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

// Token is the prefix that marks an unresolved credential in generated code.
const Token = "PLACEHOLDER_"

// Skeleton is the output of one synthesis run.
type Skeleton struct {
	Source       string
	Placeholders []string // sorted, collision-free
}

type Synthesizer struct{}

func New() *Synthesizer { return &Synthesizer{} }

// Render produces a Python skeleton: one env lookup per credential key, one
// stanza per step. Prior validation diagnostics, when present, are rendered
// as hint comments so a regenerated skeleton carries the failure context.
func (s *Synthesizer) Render(bindings []models.ToolBinding, trigger string, hints []models.Diagnostic) Skeleton {
	placeholders := placeholderNames(bindings)

	var b strings.Builder
	b.WriteString("import os\n")
	b.WriteString("import json\n")
	b.WriteString("import requests\n")
	b.WriteString("from datetime import datetime\n")
	b.WriteString("\n")
	b.WriteString("# Auto-generated workflow code by Cue\n")
	fmt.Fprintf(&b, "# Trigger: %s\n", trigger)
	if len(hints) > 0 {
		b.WriteString("# Regeneration hints from the previous validation run:\n")
		for _, h := range hints {
			fmt.Fprintf(&b, "#   [%s] line %d: %s\n", h.Stage, h.Line, h.Message)
		}
	}
	b.WriteString("\n")
	b.WriteString("def main():\n")
	b.WriteString("    \"\"\"Main workflow function\"\"\"\n")
	b.WriteString("    try:\n")

	for _, name := range placeholders {
		fmt.Fprintf(&b, "        %s = os.getenv('%s', '%s%s')\n", name, name, Token, name)
	}
	b.WriteString("\n")

	for _, binding := range bindings {
		fmt.Fprintf(&b, "        # Step %d: %s via %s\n", binding.StepIndex, binding.Action, binding.ToolName)
		writeStanza(&b, binding)
		b.WriteString("\n")
	}

	b.WriteString("        return {'status': 'success', 'message': 'Workflow completed'}\n")
	b.WriteString("\n")
	b.WriteString("    except Exception as e:\n")
	b.WriteString("        return {'status': 'error', 'message': str(e)}\n")
	b.WriteString("\n")
	b.WriteString("if __name__ == '__main__':\n")
	b.WriteString("    print(json.dumps(main(), indent=2))\n")

	return Skeleton{Source: b.String(), Placeholders: placeholders}
}

func writeStanza(b *strings.Builder, binding models.ToolBinding) {
	switch binding.Action {
	case intent.SendNotificationAction:
		fmt.Fprintf(b, "        notification = {'text': 'Workflow notification', 'sent_at': datetime.now().isoformat()}\n")
		fmt.Fprintf(b, "        print('Sending via %s:', notification)\n", binding.ToolName)
	case intent.StoreDataAction:
		fmt.Fprintf(b, "        record = {'timestamp': datetime.now().isoformat()}\n")
		fmt.Fprintf(b, "        print('Storing record in %s:', record)\n", binding.ToolName)
	case intent.TransformDataAction:
		b.WriteString("        transformed = {}\n")
		fmt.Fprintf(b, "        print('Transformed via %s:', transformed)\n", binding.ToolName)
	case intent.PublishContentAction:
		fmt.Fprintf(b, "        print('Publishing content via %s')\n", binding.ToolName)
	default:
		fmt.Fprintf(b, "        print('Processing data via %s')\n", binding.ToolName)
	}
}

// placeholderNames builds the collision-free placeholder set: <TOOL>_<KEY>
// upper-cased, with the step index appended when two bindings would otherwise
// collide.
func placeholderNames(bindings []models.ToolBinding) []string {
	seen := make(map[string]bool)
	var names []string
	for _, binding := range bindings {
		for _, key := range binding.CredentialKeys {
			name := sanitize(binding.ToolName) + "_" + sanitize(key)
			if seen[name] {
				name = fmt.Sprintf("%s_%d", name, binding.StepIndex)
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
