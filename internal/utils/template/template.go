// Package template implements the small {key} substitution used for archive
// names and destination paths.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRegexp = regexp.MustCompile(`\{([A-Za-z0-9_-]+)\}`)

// Expand replaces every {key} placeholder with its value. Unknown
// placeholders are an error so typos in templates surface before anything is
// spawned.
func Expand(tpl string, values map[string]string) (string, error) {
	var missing []string

	result := placeholderRegexp.ReplaceAllStringFunc(tpl, func(match string) string {
		key := match[1 : len(match)-1]
		value, ok := values[key]
		if !ok {
			missing = append(missing, key)
			return match
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("unknown template placeholders: %s", strings.Join(missing, ", "))
	}

	return result, nil
}
