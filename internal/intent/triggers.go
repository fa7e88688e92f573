package intent

import "strings"

// explicitTriggers are phrases that request an immediate memory save,
// extracted on the spot instead of waiting for session end.
var explicitTriggers = []string{
	"remember this",
	"save this decision",
	"save this",
	"don't forget",
	"make a note",
	"note this down",
	"keep this in mind",
}

// HasExplicitTrigger reports whether the message asks for an immediate save.
func HasExplicitTrigger(message string) bool {
	lower := strings.ToLower(message)
	for _, t := range explicitTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
