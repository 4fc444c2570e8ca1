package session

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// alertSelectors are checked in order; the first with visible text wins.
var alertSelectors = []string{
	`[role="alert"]`,
	".alert-danger",
	".alert",
	".invalid-feedback",
	".help-block",
	".error",
}

const maxReasonLen = 200

// LoginFailureReason extracts a short human-readable reason from the page a
// failed sign-in left behind. It prefers alert and form-error text and falls
// back to the page title. It returns "" when nothing useful is found.
func LoginFailureReason(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()

	for _, sel := range alertSelectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = condense(s.Text())
			return found == ""
		})
		if found != "" {
			return truncate(found)
		}
	}

	if title := condense(doc.Find("title").First().Text()); title != "" {
		return truncate("page title: " + title)
	}
	return ""
}

func condense(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string) string {
	if len(s) <= maxReasonLen {
		return s
	}
	cut := maxReasonLen
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
