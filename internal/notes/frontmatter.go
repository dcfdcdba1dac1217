package notes

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

var frontmatterRe = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---(?:\r?\n|\z)(.*)\z`)

// Split is a note separated into its frontmatter block and body.
// Frontmatter includes both fences and is empty when the note has none.
type Split struct {
	Frontmatter string
	Body        string
}

// SplitContent separates frontmatter from body. Content that does not open
// with a fenced block is returned whole as the body. This is a best-effort
// parse: nothing inside the fences is validated here.
func SplitContent(content string) Split {
	m := frontmatterRe.FindStringSubmatch(content)
	if m == nil {
		return Split{Body: content}
	}
	return Split{
		Frontmatter: fence + "\n" + m[1] + "\n" + fence,
		Body:        m[2],
	}
}

// Meta is the typed view of a task note's frontmatter.
type Meta struct {
	Type    string   `yaml:"type" json:"type,omitempty"`
	Slug    string   `yaml:"task_slug" json:"slug,omitempty"`
	Status  string   `yaml:"status" json:"status,omitempty"`
	Title   string   `yaml:"title" json:"title,omitempty"`
	Created string   `yaml:"created" json:"created,omitempty"`
	Updated string   `yaml:"updated" json:"updated,omitempty"`
	Tags    []string `yaml:"tags" json:"tags,omitempty"`
}

// ParseMeta decodes a frontmatter block. Malformed YAML yields a zero Meta.
func ParseMeta(frontmatter string) Meta {
	inner := strings.TrimSpace(frontmatter)
	inner = strings.TrimPrefix(inner, fence)
	inner = strings.TrimSuffix(inner, fence)
	var meta Meta
	if err := yaml.Unmarshal([]byte(inner), &meta); err != nil {
		return Meta{}
	}
	return meta
}

// setField replaces the first top-level "key:" line of a frontmatter block,
// drops any later duplicates, and inserts the field before the closing fence
// when it is absent. An empty block becomes a new block holding only the field.
func setField(frontmatter, key, value string) string {
	line := key + ": " + value
	if strings.TrimSpace(frontmatter) == "" {
		return fence + "\n" + line + "\n" + fence
	}

	prefix := key + ":"
	lines := strings.Split(frontmatter, "\n")
	out := make([]string, 0, len(lines)+1)
	replaced := false
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimRight(l, "\r"), prefix) {
			if !replaced {
				out = append(out, line)
				replaced = true
			}
			continue
		}
		out = append(out, l)
	}
	if replaced {
		return strings.Join(out, "\n")
	}

	closing := -1
	for i := len(out) - 1; i > 0; i-- {
		if strings.TrimSpace(out[i]) == fence {
			closing = i
			break
		}
	}
	if closing < 0 {
		out = append(out, line, fence)
		return strings.Join(out, "\n")
	}
	out = append(out[:closing], append([]string{line}, out[closing:]...)...)
	return strings.Join(out, "\n")
}

// yamlScalar renders s as a YAML scalar, quoting it only when needed.
func yamlScalar(s string) string {
	out, err := yaml.Marshal(s)
	if err != nil {
		return s
	}
	return strings.TrimSuffix(string(out), "\n")
}
