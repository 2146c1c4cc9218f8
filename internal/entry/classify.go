package entry

import "strings"

// patchKeywords route a title to the patch-notes bucket
var patchKeywords = []string{"patch", "hotfix", "update", "notes"}

// Classify maps a title to its category. Any patch keyword appearing as a
// case-insensitive substring selects CategoryPatches; everything else is news.
func Classify(title string) Category {
	lower := strings.ToLower(title)
	for _, kw := range patchKeywords {
		if strings.Contains(lower, kw) {
			return CategoryPatches
		}
	}
	return CategoryNews
}
