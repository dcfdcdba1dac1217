// Package detect decides whether a piece of free text reads like a new task.
//
// The check is a coarse lexical filter, not language understanding. It is
// expected to misfire in both directions; callers that act on it either ask
// the user first or accept the occasional stray backlog note.
package detect

import (
	"strings"
)

// MinWords is the shortest text considered a task description.
const MinWords = 10

// codePrefixes mark text that was most likely pasted source or shell output.
var codePrefixes = []string{
	"{", "[", "(", "<", "#!", "//", "/*", "```", "$ ",
	"import ", "package ", "func ", "function ", "const ", "let ", "var ",
	"class ", "def ", "return ", "if (", "for (", "select ", "diff --git",
}

// taskVerbs are matched as substrings of the lowercased text.
var taskVerbs = []string{
	"implement", "add", "create", "build", "support", "integrate", "ship", "deliver",
}

// LooksLikeNewTask reports whether text looks like a request for new work.
func LooksLikeNewTask(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" {
		return false
	}
	if looksLikeCode(trimmed) {
		return false
	}
	if len(strings.Fields(trimmed)) < MinWords {
		return false
	}
	for _, verb := range taskVerbs {
		if strings.Contains(trimmed, verb) {
			return true
		}
	}
	return false
}

func looksLikeCode(lower string) bool {
	for _, p := range codePrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
