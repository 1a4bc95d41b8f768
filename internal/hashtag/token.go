// Package hashtag extracts and canonicalizes tag labels mentioned in free text.
package hashtag

import (
	"regexp"
	"strings"
)

// Marker introduces a tag token and stays part of the canonical label.
const Marker = "#"

// RE2 has no lookbehind, so the character before the marker is matched
// explicitly: a token starts at the beginning of the text or after a
// non-word character. "a#b" yields nothing, "##b" yields "#b".
var tokenPattern = regexp.MustCompile(`(?:^|\W)(#\w+)`)

// Extract returns the canonical labels mentioned in text, deduplicated in
// first-appearance order. Bodies are lowercased; the marker is preserved.
// Text with no tokens yields nil.
func Extract(text string) []string {
	if text == "" {
		return nil
	}
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	labels := make([]string, 0, len(matches))
	for _, m := range matches {
		label := strings.ToLower(m[1])
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

// ExtractSet is Extract with set-membership access for filter passes.
func ExtractSet(text string) map[string]struct{} {
	labels := Extract(text)
	if len(labels) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		set[label] = struct{}{}
	}
	return set
}

// Normalize canonicalizes a user-supplied label for lookups: trimmed,
// lowercased, marker-prefixed. Blank input normalizes to "".
func Normalize(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == Marker {
		return ""
	}
	if !strings.HasPrefix(label, Marker) {
		label = Marker + label
	}
	return label
}
