package generation

import (
	"regexp"
	"strings"
)

var (
	addressedHeading = regexp.MustCompile(`(?i)^[#*_\s]*requirements\s+addressed[*_\s]*:?[*_\s]*$`)
	bulletLine       = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s+(.+)$`)
)

// ParseRequirements reads the "Requirements addressed" list that ends a section.
// Lines after the heading are collected while they are bullets; a blank line
// after the first bullet or any other text ends the list.
func ParseRequirements(body string) []string {
	lines := strings.Split(body, "\n")
	start := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if addressedHeading.MatchString(strings.TrimSpace(lines[i])) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	var out []string
	for _, line := range lines[start:] {
		if strings.TrimSpace(line) == "" {
			if len(out) > 0 {
				break
			}
			continue
		}
		m := bulletLine.FindStringSubmatch(line)
		if m == nil {
			break
		}
		item := strings.Trim(strings.TrimSpace(m[1]), "*_")
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
