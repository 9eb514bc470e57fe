package tutor

import (
	"regexp"
	"strings"
)

// teachingMarker matches an inline annotation of the form
// "[TEACHING: text]" on a single line.
var teachingMarker = regexp.MustCompile(`\[TEACHING:([^\]\n]*)\]`)

// ExtractTeaching pulls the first teaching annotation out of a reply.
// Every marker is stripped from the visible text; only the first one's
// content is returned. A reply without a marker, or with an unterminated
// one, comes back unchanged with an empty moment.
func ExtractTeaching(reply string) (visible, moment string) {
	loc := teachingMarker.FindStringSubmatch(reply)
	if loc == nil {
		return strings.TrimSpace(reply), ""
	}
	moment = strings.TrimSpace(loc[1])

	visible = teachingMarker.ReplaceAllString(reply, "")
	visible = collapseBlankLines(strings.TrimSpace(visible))
	return visible, moment
}

var extraBlankLines = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	return extraBlankLines.ReplaceAllString(s, "\n\n")
}
