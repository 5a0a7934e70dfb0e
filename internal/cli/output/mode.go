// Package output renders command results for terminals, scripts and agents.
//
// In auto mode a terminal gets styled text and anything else gets markdown.
// JSON and YAML are available for machine consumers.
package output

import "strings"

// OutputMode selects how results are rendered.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
	ModeYAML     OutputMode = "yaml"
)

// Modes lists every accepted mode name.
var Modes = []OutputMode{ModeAuto, ModeText, ModeMarkdown, ModeJSON, ModeYAML}

// Mode converts a configured name to an OutputMode. "md" is accepted for
// markdown; empty and unknown names fall back to auto.
func Mode(s string) OutputMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ModeText
	case "markdown", "md":
		return ModeMarkdown
	case "json":
		return ModeJSON
	case "yaml", "yml":
		return ModeYAML
	default:
		return ModeAuto
	}
}

// IsValid reports whether s names a known mode.
func IsValid(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "text", "markdown", "md", "json", "yaml", "yml":
		return true
	}
	return false
}

// Names returns the mode names for flag completion.
func Names() []string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return names
}
