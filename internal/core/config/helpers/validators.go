package helpers

import (
	"path"
	"strings"
)

// HasWildcard reports whether a propath entry is a glob rather than a directory.
func HasWildcard(entry string) bool {
	return strings.ContainsAny(entry, "*?[]{}")
}

// IsPathOverlap reports whether one slash-separated directory contains the other.
func IsPathOverlap(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// EntriesOverlap reports whether two propath entries can resolve to the same
// directory. Literal entries compare by containment, globs by their literal
// prefix and by matching a sample expansion against the other entry.
func EntriesOverlap(a, b string) bool {
	if !HasWildcard(a) && !HasWildcard(b) {
		return IsPathOverlap(a, b)
	}
	if a == b {
		return true
	}

	aPrefix := strings.TrimSuffix(wildcardPrefix(a), "/")
	bPrefix := strings.TrimSuffix(wildcardPrefix(b), "/")
	if aPrefix != "" && bPrefix != "" && aPrefix != bPrefix && IsPathOverlap(aPrefix, bPrefix) {
		return true
	}

	if sample := wildcardSample(a); sample != "" {
		if matched, _ := path.Match(b, sample); matched {
			return true
		}
	}
	if sample := wildcardSample(b); sample != "" {
		if matched, _ := path.Match(a, sample); matched {
			return true
		}
	}
	return false
}

func wildcardPrefix(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[]{}")
	if idx == -1 {
		return pattern
	}
	return pattern[:idx]
}

func wildcardSample(pattern string) string {
	var sample strings.Builder
	inSet := false
	for _, ch := range pattern {
		switch {
		case ch == '[':
			inSet = true
			sample.WriteRune('x')
		case ch == ']':
			inSet = false
		case inSet:
			continue
		case ch == '*' || ch == '?' || ch == '{' || ch == '}' || ch == ',':
			sample.WriteRune('x')
		default:
			sample.WriteRune(ch)
		}
	}
	return sample.String()
}
