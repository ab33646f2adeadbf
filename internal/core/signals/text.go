package signals

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

const datePattern = `(\d{4}-\d{2}-\d{2}|\d{1,2}[/.\-]\d{1,2}[/.\-]\d{4}|\d{1,2}\s+[A-Za-z]{3,9}\s+\d{4}|[A-Za-z]{3,9}\s+\d{1,2},\s*\d{4})`

var (
	jobTitlePattern       = regexp.MustCompile(`(?im)^\s*(?:job|role)\s+title\s*[:\-]\s*(.+?)\s*$`)
	socTextPattern        = regexp.MustCompile(`(?i)\b(?:soc(?:\s+20\d\d)?|occupation)\s*(?:code)?\s*[:#\-]?\s*(\d{4})\b`)
	socNamePattern        = regexp.MustCompile(`(?i)\bsoc[\s_\-]?(\d{4})\b`)
	assignmentDatePattern = regexp.MustCompile(`(?i)(?:date\s+(?:of\s+)?assign(?:ed|ment)|assignment\s+date|assigned(?:\s+on)?)\s*[:\-]?\s*` + datePattern)
	awardDatePattern      = regexp.MustCompile(`(?i)(?:date\s+(?:of\s+)?award(?:ed)?|awarded(?:\s+on)?|date\s+obtained|obtained(?:\s+on)?|conferred(?:\s+on)?|date\s+of\s+completion)\s*[:\-]?\s*` + datePattern)
	anyDatePattern        = regexp.MustCompile(datePattern)
	dutiesPattern         = regexp.MustCompile(`(?is)(?:job\s+duties|main\s+duties|duties\s+and\s+responsibilities|duties)\s*[:\-]\s*(.+?)(?:\n\s*\n|$)`)
	qualificationLabel    = regexp.MustCompile(`(?im)^\s*(?:qualification|award)\s*(?:title)?\s*[:\-]\s*(.+?)\s*$`)
	numericLevelPattern   = regexp.MustCompile(`(?i)\b(?:nvq|rqf|level)\s*(?:level\s*)?([1-8])\b`)
	annualSalaryPattern   = regexp.MustCompile(`(?i)(?:annual\s+salary|gross\s+(?:annual\s+)?salary|salary)\s*(?:of|:|-)?\s*£?\s*([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]{4,}(?:\.[0-9]{1,2})?)`)
)

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// parseDate reads UK-style dates (day before month).
func parseDate(raw string) (time.Time, bool) {
	value := collapseSpaces(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func findDate(re *regexp.Regexp, text string) (time.Time, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if t, ok := parseDate(m[len(m)-1]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func findJobTitle(docs []domain.Document) (string, bool) {
	for _, doc := range docs {
		if m := jobTitlePattern.FindStringSubmatch(doc.ExtractedText); m != nil {
			if title := collapseSpaces(m[1]); title != "" {
				return title, true
			}
		}
	}
	return domain.UnspecifiedJobTitle, false
}

func findClassificationCode(docs []domain.Document) (string, bool) {
	for _, doc := range docs {
		if m := socTextPattern.FindStringSubmatch(doc.ExtractedText); m != nil {
			return m[1], true
		}
	}
	for _, doc := range docs {
		if m := socNamePattern.FindStringSubmatch(doc.Name); m != nil {
			return m[1], true
		}
	}
	return domain.UnknownClassification, false
}

func findAssignmentDate(docs []domain.Document) (time.Time, bool) {
	for _, doc := range docs {
		if t, ok := findDate(assignmentDatePattern, doc.ExtractedText); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func findDuties(docs []domain.Document, wholeTextFallback bool) string {
	for _, doc := range docs {
		if m := dutiesPattern.FindStringSubmatch(doc.ExtractedText); m != nil {
			if duties := collapseSpaces(m[1]); duties != "" {
				return truncate(duties, 2000)
			}
		}
	}
	if !wholeTextFallback {
		return ""
	}
	for _, doc := range docs {
		if text := collapseSpaces(doc.ExtractedText); text != "" {
			return truncate(text, 2000)
		}
	}
	return ""
}

type qualificationSignals struct {
	Title    string
	Level    int
	Obtained time.Time
	HasDate  bool
}

func findQualification(docs []domain.Document) qualificationSignals {
	var out qualificationSignals
	for _, doc := range docs {
		if out.Title == "" {
			if m := qualificationLabel.FindStringSubmatch(doc.ExtractedText); m != nil {
				out.Title = collapseSpaces(m[1])
			} else {
				out.Title = collapseSpaces(strings.ReplaceAll(stripExtension(doc.Name), "_", " "))
			}
		}
		if level := qualificationLevel(doc.Name + "\n" + doc.ExtractedText); level > out.Level {
			out.Level = level
		}
		if !out.HasDate {
			if t, ok := findDate(awardDatePattern, doc.ExtractedText); ok {
				out.Obtained, out.HasDate = t, true
			} else if m := anyDatePattern.FindStringSubmatch(stripExtension(doc.Name)); m != nil {
				out.Obtained, out.HasDate = parseDate(m[1])
			}
		}
	}
	return out
}

var levelKeywords = []struct {
	level  int
	tokens []string
}{
	{8, []string{"phd", "doctorate", "dphil"}},
	{7, []string{"masters", "master", "msc", "mba", "mres", "llm"}},
	{6, []string{"degree", "bachelor", "bachelors", "bsc", "honours", "beng", "llb"}},
	{5, []string{"hnd", "foundation"}},
	{4, []string{"hnc", "diploma"}},
}

// qualificationLevel maps qualification wording onto RQF levels.
func qualificationLevel(text string) int {
	best := 0
	for _, m := range numericLevelPattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > best {
			best = n
		}
	}
	tokens := tokenSet(normalize(text))
	for _, kw := range levelKeywords {
		if kw.level <= best {
			continue
		}
		for _, token := range kw.tokens {
			if _, ok := tokens[token]; ok {
				best = kw.level
				break
			}
		}
	}
	return best
}

func findAnnualSalary(docs []domain.Document) (float64, bool) {
	for _, doc := range docs {
		for _, m := range annualSalaryPattern.FindAllStringSubmatch(doc.ExtractedText, -1) {
			if amount, ok := parseAmount(m[1]); ok && amount >= 1000 {
				return amount, true
			}
		}
	}
	return 0, false
}

func parseAmount(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
