package signals

import (
	"regexp"
	"strings"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

// identityPattern pairs a file-name pattern with the function that turns its
// submatches into a worker name.
type identityPattern struct {
	name    string
	re      *regexp.Regexp
	extract func(match []string) string
}

func firstGroup(match []string) string {
	if len(match) < 2 {
		return ""
	}
	return cleanWorkerName(match[1])
}

// sponsorshipIdentityPatterns run most specific first.
var sponsorshipIdentityPatterns = []identityPattern{
	{
		name:    "worker_from_certificate",
		re:      regexp.MustCompile(`(?i)^worker\s+from\s+(.+?)\s*[-–—]\s*certificate\s+of\s+sponsorship\b`),
		extract: firstGroup,
	},
	{
		name:    "name_certificate",
		re:      regexp.MustCompile(`(?i)^(.+?)\s*[-–—]\s*certificate\s+of\s+sponsorship\b`),
		extract: firstGroup,
	},
	{
		name:    "certificate_name",
		re:      regexp.MustCompile(`(?i)^certificate\s+of\s+sponsorship\s*[-–—:]\s*(.+)$`),
		extract: firstGroup,
	},
	{
		name:    "name_cos",
		re:      regexp.MustCompile(`(?i)^(.+?)\s*[-–—_]\s*cos\b`),
		extract: firstGroup,
	},
	{
		name:    "cos_name",
		re:      regexp.MustCompile(`(?i)^cos\s*[-–—_:]\s*(.+)$`),
		extract: firstGroup,
	},
}

var cvIdentityPatterns = []identityPattern{
	{
		name:    "name_cv",
		re:      regexp.MustCompile(`(?i)^(.+?)[\s_]*[-–—_]?[\s_]*\b(?:cv|resume|curriculum\s+vitae)\b`),
		extract: firstGroup,
	},
	{
		name:    "cv_name",
		re:      regexp.MustCompile(`(?i)^(?:cv|resume|curriculum\s+vitae)\s*[-–—_:]\s*(.+)$`),
		extract: firstGroup,
	},
}

var textNamePattern = regexp.MustCompile(`(?im)^\s*(?:worker|employee|migrant|applicant)?\s*(?:full\s+)?name\s*:\s*(.+?)\s*$`)

type identityMatch struct {
	Name    string
	Pattern string
}

// matchIdentity runs patterns in order against a file name without extension;
// the first pattern yielding a non-empty name wins.
func matchIdentity(patterns []identityPattern, name string) (identityMatch, bool) {
	base := collapseSpaces(stripExtension(name))
	for _, p := range patterns {
		match := p.re.FindStringSubmatch(base)
		if match == nil {
			continue
		}
		if extracted := p.extract(match); extracted != "" {
			return identityMatch{Name: extracted, Pattern: p.name}, true
		}
	}
	return identityMatch{}, false
}

var (
	boilerplate   = regexp.MustCompile(`(?i)\b(?:certificate\s+of\s+sponsorship|worker\s+from|cos|copy|signed|final|scan(?:ned)?)\b`)
	dashSeparator = regexp.MustCompile(`[-–—_]`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// fallbackWorkerName strips boilerplate and keeps the text before the first
// dash-like separator.
func fallbackWorkerName(name string) string {
	stripped := boilerplate.ReplaceAllString(stripExtension(name), " ")
	stripped = strings.TrimSpace(stripped)
	stripped = strings.TrimLeft(stripped, "-–—_ ")
	if loc := dashSeparator.FindStringIndex(stripped); loc != nil {
		stripped = stripped[:loc[0]]
	}
	return cleanWorkerName(stripped)
}

func cleanWorkerName(raw string) string {
	name := collapseSpaces(strings.ReplaceAll(raw, "_", " "))
	name = strings.Trim(name, " -–—.,:;")
	if strings.HasPrefix(strings.ToLower(name), "worker from ") {
		name = strings.TrimSpace(name[len("worker from "):])
	}
	return name
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// resolveWorkerName prefers sponsorship file names, then CV file names, then a
// labelled name in sponsorship text, then the boilerplate-stripped sponsorship
// file name.
func resolveWorkerName(sponsorship, cvs []domain.Document) (string, bool) {
	for _, doc := range sponsorship {
		if m, ok := matchIdentity(sponsorshipIdentityPatterns, doc.Name); ok {
			return m.Name, true
		}
	}
	for _, doc := range cvs {
		if m, ok := matchIdentity(cvIdentityPatterns, doc.Name); ok {
			return m.Name, true
		}
	}
	for _, doc := range sponsorship {
		if m := textNamePattern.FindStringSubmatch(doc.ExtractedText); m != nil {
			if name := cleanWorkerName(m[1]); name != "" {
				return name, true
			}
		}
	}
	for _, doc := range sponsorship {
		if name := fallbackWorkerName(doc.Name); name != "" {
			return name, true
		}
	}
	return domain.UnknownWorkerName, false
}
