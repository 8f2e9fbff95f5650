package executor

import (
	"regexp"
	"strings"
)

var (
	// A sandbox path followed by a colon is a location prefix such as
	// "/workspace/solution.cpp:3:5:" and is dropped entirely.
	sandboxLocationPattern = regexp.MustCompile(`(?:/tmp|/workspace)/[^:\s"']+:`)
	// Any other sandbox path keeps only its final element.
	sandboxDirPattern = regexp.MustCompile(`(?:/tmp|/workspace)/(?:[^/\s"':]+/)*`)
	stackFramePattern = regexp.MustCompile(`(?m)^[ \t]*at[ \t]+`)
	blankLinesPattern = regexp.MustCompile(`\n(?:[ \t\r]*\n)+`)
)

// CleanError prepares raw process output for presentation: sandbox paths are
// removed, stack frames are indented uniformly and blank-line runs collapse.
func CleanError(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return ""
	}
	cleaned = sandboxLocationPattern.ReplaceAllString(cleaned, "")
	cleaned = sandboxDirPattern.ReplaceAllString(cleaned, "")
	cleaned = stackFramePattern.ReplaceAllString(cleaned, "  at ")
	cleaned = blankLinesPattern.ReplaceAllString(cleaned, "\n")
	return strings.TrimSpace(cleaned)
}
