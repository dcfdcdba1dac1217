package notes

import (
	"fmt"
	"strings"

	"github.com/bborn/codex-vault/internal/vault"
)

// Section headings of the canonical task template.
const (
	SectionDescription     = "Description"
	SectionGoal            = "Goal"
	SectionCurrentBehavior = "Current Behavior"
	SectionDefinitionDone  = "Definition of Done"
	SectionConstraints     = "Constraints / Risks"
	SectionPlanTodos       = "Plan TODOs"
	SectionRelated         = "Related Notes"
)

func createdBody(taskSlug, title, description string) string {
	desc := strings.TrimSpace(description)
	if desc == "" {
		desc = "TBD"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	sb.WriteString("## " + SectionDescription + "\n\n")
	sb.WriteString(desc + "\n\n")
	sb.WriteString(relatedNotes(taskSlug))
	return sb.String()
}

func refinedBody(taskSlug, title, goal string, includePlanTodos bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	section(&sb, SectionGoal, goal)
	section(&sb, SectionCurrentBehavior, "TBD")
	section(&sb, SectionDefinitionDone, "- [ ] TBD")
	section(&sb, SectionConstraints, "TBD")
	if includePlanTodos {
		section(&sb, SectionPlanTodos, planTodos(taskSlug))
	}
	sb.WriteString(relatedNotes(taskSlug))
	return sb.String()
}

func section(sb *strings.Builder, heading, content string) {
	fmt.Fprintf(sb, "## %s\n\n%s\n\n", heading, content)
}

func planTodos(taskSlug string) string {
	return strings.Join([]string{
		fmt.Sprintf("- [ ] TODO: research agent (%s) -> %s (`codex-vault research %s`)",
			vault.Rel(vault.AIDir, vault.AgentsDir, vault.KindResearch.PromptFile()),
			vault.OutputRel(vault.KindResearch, taskSlug), taskSlug),
		fmt.Sprintf("- [ ] TODO: impl-plan agent (%s) -> %s (`codex-vault plan %s`)",
			vault.Rel(vault.AIDir, vault.AgentsDir, vault.KindImplPlan.PromptFile()),
			vault.OutputRel(vault.KindImplPlan, taskSlug), taskSlug),
	}, "\n")
}

// relatedNotes links every note the workflow may produce for a task. The
// targets need not exist yet.
func relatedNotes(taskSlug string) string {
	links := []struct{ label, target string }{
		{"Research", vault.Rel(vault.AIDir, vault.ResearchDir, taskSlug+"-research")},
		{"Plan", vault.Rel(vault.AIDir, vault.PlansDir, taskSlug+"-plan")},
		{"Context", vault.Rel(vault.AIDir, vault.PlansDir, taskSlug+"-context")},
		{"Tasks", vault.Rel(vault.AIDir, vault.PlansDir, taskSlug+"-tasks")},
		{"Workflow", vault.Rel(vault.AIDir, vault.WorkflowsDir, taskSlug+"-workflow")},
		{"QA", vault.Rel(vault.AIDir, vault.QADir, taskSlug+"-qa")},
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", SectionRelated)
	for _, l := range links {
		fmt.Fprintf(&sb, "- %s: [[%s]]\n", l.label, l.target)
	}
	return sb.String()
}

// knownSections are the headings Refine understands in an existing body.
var knownSections = []string{
	SectionDescription,
	SectionGoal,
	SectionCurrentBehavior,
	SectionDefinitionDone,
	SectionConstraints,
	SectionPlanTodos,
	SectionRelated,
}

// parseSections maps each known "## " heading of body to its trimmed content.
// ok is false when body has none of the known headings.
func parseSections(body string) (sections map[string]string, ok bool) {
	sections = make(map[string]string)
	current := ""
	var buf []string
	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
		buf = nil
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(trimmed, "## ") {
			if name, known := canonicalSection(strings.TrimPrefix(trimmed, "## ")); known {
				flush()
				current = name
				ok = true
				continue
			}
		}
		if current != "" {
			buf = append(buf, trimmed)
		}
	}
	flush()
	return sections, ok
}

func canonicalSection(heading string) (string, bool) {
	heading = strings.TrimSpace(heading)
	for _, s := range knownSections {
		if strings.EqualFold(heading, s) {
			return s, true
		}
	}
	return "", false
}

// priorGoal picks the goal text to keep from an existing body: its Goal
// section, else its Description section, else the body without its title
// when it has no known sections at all. TBD placeholders count as empty.
func priorGoal(body string) string {
	sections, ok := parseSections(body)
	if !ok {
		return stripTitleHeading(body)
	}
	for _, name := range []string{SectionGoal, SectionDescription} {
		if content := sections[name]; content != "" && content != "TBD" {
			return content
		}
	}
	return ""
}
