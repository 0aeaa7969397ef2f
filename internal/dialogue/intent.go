package dialogue

import "strings"

// Keywords whose presence in an utterance flags scheduling intent. Matching
// is a case-insensitive substring scan; false positives are harmless because
// the intent flag only adds a collection instruction to the prompt and gates
// finalization on actually collected details.
var schedulingKeywords = []string{"appointment", "schedule"}

// DetectSchedulingIntent reports whether the utterance mentions scheduling.
func DetectSchedulingIntent(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, kw := range schedulingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
