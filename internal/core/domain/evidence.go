package domain

import (
	"encoding/json"
	"sort"
)

type EvidenceCategory string

const (
	EvidenceSponsorship     EvidenceCategory = "sponsorship"
	EvidenceCV              EvidenceCategory = "cv"
	EvidenceReferences      EvidenceCategory = "references"
	EvidenceContracts       EvidenceCategory = "contracts"
	EvidencePayslips        EvidenceCategory = "payslips"
	EvidenceTraining        EvidenceCategory = "training"
	EvidenceJobDescription  EvidenceCategory = "job_description"
	EvidenceRightToWork     EvidenceCategory = "right_to_work"
	EvidenceQualification   EvidenceCategory = "qualification"
	EvidenceEnglishLanguage EvidenceCategory = "english_language"
)

var evidenceLabels = map[EvidenceCategory]string{
	EvidenceSponsorship:     "Certificate of Sponsorship",
	EvidenceCV:              "Curriculum vitae",
	EvidenceReferences:      "Employment references",
	EvidenceContracts:       "Employment contracts",
	EvidencePayslips:        "Payslips",
	EvidenceTraining:        "Training records",
	EvidenceJobDescription:  "Job description",
	EvidenceRightToWork:     "Right to work evidence",
	EvidenceQualification:   "Qualification certificate",
	EvidenceEnglishLanguage: "English language evidence",
}

// Label is the human-readable name used in reports.
func (c EvidenceCategory) Label() string {
	if label, ok := evidenceLabels[c]; ok {
		return label
	}
	return string(c)
}

// EvidenceSet records which evidence categories a batch contains.
type EvidenceSet map[EvidenceCategory]struct{}

func NewEvidenceSet(categories ...EvidenceCategory) EvidenceSet {
	set := make(EvidenceSet, len(categories))
	for _, c := range categories {
		set.Add(c)
	}
	return set
}

func (s EvidenceSet) Add(c EvidenceCategory) {
	s[c] = struct{}{}
}

func (s EvidenceSet) Has(c EvidenceCategory) bool {
	_, ok := s[c]
	return ok
}

func (s EvidenceSet) Sorted() []EvidenceCategory {
	out := make([]EvidenceCategory, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s EvidenceSet) Clone() EvidenceSet {
	out := make(EvidenceSet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// Missing returns the required categories absent from the set, in required order.
func (s EvidenceSet) Missing(required []EvidenceCategory) []EvidenceCategory {
	out := make([]EvidenceCategory, 0)
	for _, c := range required {
		if !s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s EvidenceSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *EvidenceSet) UnmarshalJSON(raw []byte) error {
	var list []EvidenceCategory
	if err := json.Unmarshal(raw, &list); err != nil {
		return err
	}
	*s = NewEvidenceSet(list...)
	return nil
}
