package engine

import (
	"fmt"
	"strings"
)

// Mode selects which matcher validates a message.
type Mode string

// Validation modes.
const (
	// ModePlain evaluates the grammar as written with the greedy matcher.
	ModePlain Mode = "plain"
	// ModeLooping substitutes the self-referential rules and counts repetitions.
	ModeLooping Mode = "looping"
)

// DefaultModes are used when no mode is configured.
var DefaultModes = []Mode{ModePlain, ModeLooping}

// ParseMode converts a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePlain:
		return ModePlain, nil
	case ModeLooping:
		return ModeLooping, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected %s or %s)", s, ModePlain, ModeLooping)
	}
}

// ParseModes converts mode names, dropping duplicates and keeping the first
// occurrence order. Entries may themselves be comma separated.
// An empty list yields DefaultModes.
func ParseModes(names []string) ([]Mode, error) {
	var modes []Mode
	seen := make(map[Mode]bool)
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			m, err := ParseMode(part)
			if err != nil {
				return nil, err
			}
			if !seen[m] {
				seen[m] = true
				modes = append(modes, m)
			}
		}
	}
	if len(modes) == 0 {
		return append([]Mode(nil), DefaultModes...), nil
	}
	return modes, nil
}

// Strings returns the mode names.
func Strings(modes []Mode) []string {
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}
