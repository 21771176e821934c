package extract

import (
	"regexp"
	"strings"
)

// interfaceTokens are phrases that belong to the ad-library chrome, not
// to any ad. A container whose text is dominated by these is interface,
// not content.
var interfaceTokens = []string{
	"Meta Ad Library",
	"Ad Library Report",
	"Ad Library API",
	"Select country",
	"Filter results",
	"System status",
	"Subscribe to email",
	"About ads and data use",
}

// skipTokens are per-line phrases inside a real ad card that are card
// chrome rather than ad copy.
var skipTokens = []string{
	"Library ID",
	"Started running",
	"Sponsored",
	"Platforms",
	"See ad details",
	"See summary details",
	"This ad has multiple",
	"Open Dropdown",
	"Active",
}

// ctaPhrases are the short button texts commonly used as calls to action.
var ctaPhrases = []string{
	"Shop now",
	"Shop Now",
	"Learn more",
	"Learn More",
	"Get started",
	"Sign up",
	"Sign Up",
	"Buy now",
	"Book now",
	"Get offer",
	"Subscribe",
}

var (
	libraryIDRe   = regexp.MustCompile(`Library ID:?\s*(\d+)`)
	idDigitsRe    = regexp.MustCompile(`^\d+$`)
	dateStartedRe = regexp.MustCompile(`Started running on\s+([A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4})`)
)

// isInterfaceText reports whether a container's text is dominated by
// library chrome. More than two interface tokens means it is almost
// certainly a filter bar, footer or report panel.
func isInterfaceText(text string) bool {
	n := 0
	for _, tok := range interfaceTokens {
		if strings.Contains(text, tok) {
			n++
			if n > 2 {
				return true
			}
		}
	}
	return false
}

// isChromeLine reports whether a single line is card chrome.
func isChromeLine(line string) bool {
	for _, tok := range skipTokens {
		if strings.Contains(line, tok) {
			return true
		}
	}
	return false
}

// isBoilerplateText reports whether trimmed text carries no ad identity
// on its own (chrome line or CTA phrase).
func isBoilerplateText(s string) bool {
	if s == "" {
		return true
	}
	if isChromeLine(s) {
		return true
	}
	for _, p := range ctaPhrases {
		if s == p {
			return true
		}
	}
	return false
}

// textLines splits element text into trimmed, non-empty lines.
func textLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// longestCopyLine returns the longest line that looks like ad copy:
// long enough to be meaningful, not chrome, not shouting interface text.
func longestCopyLine(lines []string) string {
	var best string
	for _, l := range lines {
		if len(l) <= 20 || isChromeLine(l) {
			continue
		}
		if l == strings.ToUpper(l) && len(l) > 3 {
			continue
		}
		if len(l) > len(best) {
			best = l
		}
	}
	return best
}

// headlineLine returns the first medium-length line that could be a
// headline.
func headlineLine(lines []string) string {
	for _, l := range lines {
		if len(l) > 30 && len(l) < 150 && !isChromeLine(l) && !strings.HasSuffix(l, "...") {
			return l
		}
	}
	return ""
}

// ctaLine returns the first line matching a known call-to-action phrase.
func ctaLine(lines []string) string {
	for _, l := range lines {
		for _, p := range ctaPhrases {
			if l == p {
				return l
			}
		}
	}
	return ""
}

// advertiserLine returns the line immediately after "Sponsored" when it
// looks like a brand name rather than more chrome.
func advertiserLine(lines []string) string {
	for i, l := range lines {
		if l != "Sponsored" || i+1 >= len(lines) {
			continue
		}
		next := lines[i+1]
		if len(next) > 2 && len(next) < 100 && !isChromeLine(next) {
			return next
		}
	}
	return ""
}
