package signals

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

// categoryRule matches a normalized document name. Phrases match as substrings,
// tokens only as whole words so short keywords do not fire inside names.
type categoryRule struct {
	category domain.EvidenceCategory
	phrases  []string
	tokens   []string
}

// categoryRules is evaluated in order; the first matching rule wins.
var categoryRules = []categoryRule{
	{
		category: domain.EvidenceSponsorship,
		phrases:  []string{"certificate of sponsorship", "sponsorship"},
		tokens:   []string{"cos"},
	},
	{
		category: domain.EvidenceRightToWork,
		phrases:  []string{"right to work", "biometric residence", "share code", "passport"},
		tokens:   []string{"rtw", "brp", "visa", "evisa"},
	},
	{
		category: domain.EvidenceJobDescription,
		phrases:  []string{"job description", "job spec", "role profile", "person specification"},
		tokens:   []string{"jd"},
	},
	{
		category: domain.EvidencePayslips,
		phrases:  []string{"payslip", "pay slip", "payroll", "wage slip"},
		tokens:   []string{"pay", "p60", "salary", "wages"},
	},
	{
		category: domain.EvidenceContracts,
		phrases:  []string{"contract", "offer letter", "employment agreement", "statement of terms"},
	},
	{
		category: domain.EvidenceReferences,
		phrases:  []string{"reference", "referee", "testimonial"},
		tokens:   []string{"ref", "refs"},
	},
	{
		category: domain.EvidenceEnglishLanguage,
		phrases:  []string{"english", "ielts", "toefl", "selt", "pte academic"},
	},
	{
		category: domain.EvidenceQualification,
		phrases:  []string{"qualification", "degree", "diploma", "transcript", "bachelor", "masters", "doctorate", "graduation"},
		tokens:   []string{"nvq", "bsc", "msc", "phd", "mba", "hnd", "btec", "rqf"},
	},
	{
		category: domain.EvidenceTraining,
		phrases:  []string{"training", "course", "induction"},
		tokens:   []string{"cpd"},
	},
	{
		category: domain.EvidenceCV,
		phrases:  []string{"curriculum vitae", "resume"},
		tokens:   []string{"cv"},
	},
	{
		category: domain.EvidenceSponsorship,
		tokens:   []string{"certificate"},
	},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeName lower-cases a file name, drops the extension and reduces every
// separator run to a single space.
func normalizeName(name string) string {
	return normalize(stripExtension(name))
}

func normalize(text string) string {
	lowered := strings.ToLower(strings.ReplaceAll(text, "é", "e"))
	return strings.TrimSpace(nonAlnum.ReplaceAllString(lowered, " "))
}

func stripExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, " /") {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

func (r categoryRule) matches(normalized string, tokens map[string]struct{}) bool {
	for _, phrase := range r.phrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	for _, token := range r.tokens {
		if _, ok := tokens[token]; ok {
			return true
		}
	}
	return false
}

func tokenSet(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// classifyNormalized returns the category of the first rule matching.
func classifyNormalized(rules []categoryRule, normalized string) (domain.EvidenceCategory, bool) {
	if normalized == "" {
		return "", false
	}
	tokens := tokenSet(normalized)
	for _, rule := range rules {
		if rule.matches(normalized, tokens) {
			return rule.category, true
		}
	}
	return "", false
}

const textClassificationWindow = 600

// ClassifyDocument assigns a document to an evidence category by its name, and
// by the head of its extracted text when the name carries no signal.
func ClassifyDocument(doc domain.Document) (domain.EvidenceCategory, bool) {
	if category, ok := classifyNormalized(categoryRules, normalizeName(doc.Name)); ok {
		return category, true
	}
	text := strings.TrimSpace(doc.ExtractedText)
	if text == "" {
		return "", false
	}
	if len(text) > textClassificationWindow {
		text = text[:textClassificationWindow]
	}
	return classifyNormalized(categoryRules, normalize(text))
}
