package submissions

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const MaxNameLength = 200

var (
	strictPolicy = bluemonday.StrictPolicy()
	// The policy escapes quotes in text; names keep them literally.
	unescapeQuotes = strings.NewReplacer("&#39;", "'", "&#34;", `"`)
)

// Sanitize strips every tag and attribute from name, trims the result and
// caps it at MaxNameLength runes.
func Sanitize(name string) string {
	clean := strings.TrimSpace(unescapeQuotes.Replace(strictPolicy.Sanitize(name)))
	if r := []rune(clean); len(r) > MaxNameLength {
		clean = string(r[:MaxNameLength])
	}
	return clean
}
