package domain

import "time"

// DerivedChecks are recomputed from ExtractedFacts on every run.
type DerivedChecks struct {
	EmploymentHistoryConsistent   bool `json:"employment_history_consistent"`
	ExperienceMatchesDuties       bool `json:"experience_matches_duties"`
	ReferencesCredible            bool `json:"references_credible"`
	ExperienceRecentAndContinuous bool `json:"experience_recent_and_continuous"`

	TimingValid           bool `json:"timing_valid"`
	QualificationRelevant bool `json:"qualification_relevant"`
	EnglishEvidence       bool `json:"english_evidence"`
	ExperienceEvidence    bool `json:"experience_evidence"`

	UnderThresholdMonths int `json:"under_threshold_months"`

	MissingEvidence []EvidenceCategory `json:"missing_evidence"`
	Inconsistencies []string           `json:"inconsistencies,omitempty"`
}

type ComplianceStatus string

const (
	StatusCompliant     ComplianceStatus = "COMPLIANT"
	StatusBreach        ComplianceStatus = "BREACH"
	StatusSeriousBreach ComplianceStatus = "SERIOUS_BREACH"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Reason codes attached to verdicts.
const (
	ReasonUnderpaid             = "UNDERPAID"
	ReasonQualificationTiming   = "QUALIFICATION_AFTER_ASSIGNMENT"
	ReasonQualificationRelevant = "QUALIFICATION_NOT_RELEVANT"
	ReasonEnglishMissing        = "ENGLISH_EVIDENCE_MISSING"
	ReasonExperienceMissing     = "EXPERIENCE_EVIDENCE_MISSING"
	ReasonDocumentsMissing      = "DOCUMENTS_MISSING"
	ReasonHistoryInconsistent   = "EMPLOYMENT_HISTORY_INCONSISTENT"
	ReasonDutiesMismatch        = "EXPERIENCE_DUTIES_MISMATCH"
	ReasonReferencesWeak        = "REFERENCES_NOT_CREDIBLE"
	ReasonExperienceGap         = "EXPERIENCE_NOT_RECENT"
)

type ComplianceVerdict struct {
	Status    ComplianceStatus `json:"status"`
	RiskLevel RiskLevel        `json:"risk_level"`
	RedFlag   bool             `json:"red_flag"`
	Reasons   []string         `json:"reasons,omitempty"`
}

type NarrativeSource string

const (
	NarrativeGenerated NarrativeSource = "generated"
	NarrativeTemplate  NarrativeSource = "template"
)

const NoticeTemplateNarrative = "template-based assessment used"

type Narrative struct {
	Text   string          `json:"text"`
	Source NarrativeSource `json:"source"`
}

// ComplianceAssessment is created once per domain per run and never edited.
type ComplianceAssessment struct {
	ID              string            `json:"id"`
	WorkerID        string            `json:"worker_id"`
	BatchID         string            `json:"batch_id,omitempty"`
	Domain          AssessmentDomain  `json:"domain"`
	Facts           ExtractedFacts    `json:"facts"`
	Checks          DerivedChecks     `json:"checks"`
	Verdict         ComplianceVerdict `json:"verdict"`
	Narrative       string            `json:"narrative"`
	NarrativeSource NarrativeSource   `json:"narrative_source"`
	Notices         []string          `json:"notices,omitempty"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

type WorkerSummary struct {
	WorkerID        string           `json:"worker_id"`
	WorkerName      string           `json:"worker_name"`
	CaseReference   string           `json:"case_reference"`
	LatestStatus    ComplianceStatus `json:"latest_status"`
	LatestRiskLevel RiskLevel        `json:"latest_risk_level"`
	RedFlag         bool             `json:"red_flag"`
	AssessmentCount int              `json:"assessment_count"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// AssessmentRequest is one upload batch submitted for assessment.
type AssessmentRequest struct {
	WorkerID  string             `json:"worker_id"`
	BatchID   string             `json:"batch_id,omitempty"`
	Domains   []AssessmentDomain `json:"domains,omitempty"`
	Documents []Document         `json:"documents"`
}

var riskOrder = map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

// Worse reports whether a is a higher risk than b.
func (a RiskLevel) Worse(b RiskLevel) bool {
	return riskOrder[a] > riskOrder[b]
}

var statusOrder = map[ComplianceStatus]int{StatusCompliant: 0, StatusBreach: 1, StatusSeriousBreach: 2}

func (s ComplianceStatus) Worse(other ComplianceStatus) bool {
	return statusOrder[s] > statusOrder[other]
}

// NarrativeRequest is the payload sent to the narrative generation service.
type NarrativeRequest struct {
	Domain                        AssessmentDomain  `json:"domain"`
	WorkerName                    string            `json:"worker_name"`
	CaseReference                 string            `json:"case_reference"`
	AssignmentDate                string            `json:"assignment_date"`
	JobTitle                      string            `json:"job_title"`
	ClassificationCode            string            `json:"classification_code"`
	CoSDuties                     string            `json:"cos_duties"`
	JobDescriptionDuties          string            `json:"job_description_duties"`
	MissingEvidence               []string          `json:"missing_evidence"`
	EmploymentHistoryConsistent   bool              `json:"employment_history_consistent"`
	ExperienceMatchesDuties       bool              `json:"experience_matches_duties"`
	ReferencesCredible            bool              `json:"references_credible"`
	ExperienceRecentAndContinuous bool              `json:"experience_recent_and_continuous"`
	InconsistenciesDescription    string            `json:"inconsistencies_description,omitempty"`
	Verdict                       ComplianceVerdict `json:"verdict"`
}
