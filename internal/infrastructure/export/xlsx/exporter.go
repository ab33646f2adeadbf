// Package xlsx writes worker assessment reports as spreadsheets.
package xlsx

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

const (
	assessmentsSheet = "Assessments"
	summarySheet     = "Summary"
	contentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var assessmentHeader = []any{
	"Assessment ID", "Domain", "Generated At", "Status", "Risk Level", "Red Flag",
	"Reasons", "Missing Evidence", "Incomplete Fields", "Narrative Source", "Narrative",
}

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) ContentType() string {
	return contentType
}

// Export writes one row per assessment plus a summary sheet when available.
func (e *Exporter) Export(w io.Writer, summary *domain.WorkerSummary, assessments []domain.ComplianceAssessment) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", assessmentsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(assessmentsSheet, "A1", &assessmentHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(assessmentsSheet, "A1", "K1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, a := range assessments {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := []any{
			a.ID,
			string(a.Domain),
			a.GeneratedAt.UTC().Format(time.RFC3339),
			string(a.Verdict.Status),
			string(a.Verdict.RiskLevel),
			yesNo(a.Verdict.RedFlag),
			strings.Join(a.Verdict.Reasons, ", "),
			joinCategories(a.Checks.MissingEvidence),
			strings.Join(a.Facts.Incomplete, ", "),
			string(a.NarrativeSource),
			a.Narrative,
		}
		if err := f.SetSheetRow(assessmentsSheet, cell, &row); err != nil {
			return fmt.Errorf("write assessment row: %w", err)
		}
	}
	if err := f.SetColWidth(assessmentsSheet, "A", "J", 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(assessmentsSheet, "K", "K", 80); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if summary != nil {
		if err := writeSummary(f, *summary, bold); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, s domain.WorkerSummary, bold int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	rows := [][]any{
		{"Worker ID", s.WorkerID},
		{"Worker Name", s.WorkerName},
		{"Case Reference", s.CaseReference},
		{"Latest Status", string(s.LatestStatus)},
		{"Latest Risk Level", string(s.LatestRiskLevel)},
		{"Red Flag", yesNo(s.RedFlag)},
		{"Assessments", s.AssessmentCount},
		{"Updated At", s.UpdatedAt.UTC().Format(time.RFC3339)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	return f.SetColWidth(summarySheet, "A", "B", 28)
}

func joinCategories(categories []domain.EvidenceCategory) string {
	labels := make([]string, 0, len(categories))
	for _, c := range categories {
		labels = append(labels, c.Label())
	}
	return strings.Join(labels, ", ")
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}
