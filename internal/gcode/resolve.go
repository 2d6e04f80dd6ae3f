package gcode

import (
	"regexp"
)

// placeholderRe matches {name} and {name:default}. The name stops at the first
// ':' or '}', the default runs to the closing brace and may be empty.
var placeholderRe = regexp.MustCompile(`\{([^}:]+)(?::([^}]*))?\}`)

// Resolve replaces every placeholder in template with its value from values,
// falling back to the inline default and then to the empty string.
//
// Dollar placeholders are looked up with their sigil: {$frame_height} reads
// values["$frame_height"]. Substituted text is never rescanned, and a '{'
// without a closing brace is left as literal text.
func Resolve(template string, values map[string]string) string {
	if template == "" {
		return ""
	}

	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		groups := placeholderRe.FindStringSubmatch(match)
		if v, ok := values[groups[1]]; ok {
			return v
		}
		return groups[2]
	})
}

// Merge flattens value sets into one map. Later sets win on key collisions.
func Merge(sets ...map[string]string) map[string]string {
	size := 0
	for _, s := range sets {
		size += len(s)
	}

	merged := make(map[string]string, size)
	for _, s := range sets {
		for k, v := range s {
			merged[k] = v
		}
	}
	return merged
}
