package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/sponsor-compliance/internal/core/signals"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"NATS_SUBJECT", "API_RATE_LIMIT_RPS", "SYNTHESIZE_PAYSLIPS", "NARRATIVE_URL", "MAX_BATCH_FILES"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.NATSSubject != "compliance.batches" {
		t.Fatalf("expected default subject, got %q", cfg.NATSSubject)
	}
	if cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected default rps 20, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.SynthesizePayslips {
		t.Fatalf("payslip synthesis must be off by default")
	}
	if cfg.NarrativeURL != "" {
		t.Fatalf("expected no narrative service by default, got %q", cfg.NarrativeURL)
	}
	if cfg.MaxBatchFiles != 50 {
		t.Fatalf("expected max batch files 50, got %d", cfg.MaxBatchFiles)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("SYNTHESIZE_PAYSLIPS", "true")
	t.Setenv("NARRATIVE_TIMEOUT_SECONDS", "5")
	t.Setenv("PDF_MAX_PAGES", "not-a-number")

	cfg := Load()
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.APIRateLimitRPS)
	}
	if !cfg.SynthesizePayslips {
		t.Fatalf("expected synthesis enabled")
	}
	if cfg.NarrativeTimeoutSeconds != 5 {
		t.Fatalf("expected timeout 5, got %d", cfg.NarrativeTimeoutSeconds)
	}
	if cfg.PDFMaxPages != 50 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.PDFMaxPages)
	}
}

func TestLoadResilienceSettings(t *testing.T) {
	t.Setenv("RESILIENCE_RETRY_MAX_ATTEMPTS", "")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "false")
	t.Setenv("RESILIENCE_BREAKER_OPEN_SECONDS", "12")

	cfg := Load()
	if cfg.ResilienceRetryMaxAttempts != 2 {
		t.Fatalf("expected default retry attempts 2, got %d", cfg.ResilienceRetryMaxAttempts)
	}
	if cfg.ResilienceBreakerEnabled {
		t.Fatalf("expected breaker disabled by override")
	}
	if cfg.ResilienceBreakerOpenSeconds != 12 {
		t.Fatalf("expected breaker open seconds 12, got %d", cfg.ResilienceBreakerOpenSeconds)
	}
}

func TestLoadRulesWithoutFileReturnsDefaults(t *testing.T) {
	r, err := LoadRules("")
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if r.Thresholds.Salary.SeriousBreachMonths != 3 || r.Thresholds.Skills.MediumRiskMaxFailures != 2 {
		t.Fatalf("unexpected default thresholds: %+v", r.Thresholds)
	}
	if r.Extraction.DefaultAnnualSalary != 26020.80 {
		t.Fatalf("unexpected default salary %v", r.Extraction.DefaultAnnualSalary)
	}
}

func TestLoadRulesMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
thresholds:
  salary:
    serious_breach_months: 4
  qualification:
    classification_levels:
      "9999": 7
extraction:
  known_references:
    "alex smith": "C9Z9Z9Z9Z9"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	r, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if r.Thresholds.Salary.SeriousBreachMonths != 4 {
		t.Fatalf("expected override, got %d", r.Thresholds.Salary.SeriousBreachMonths)
	}
	if r.Thresholds.Salary.DefaultAnnualSalary != 26020.80 {
		t.Fatalf("omitted key must keep default, got %v", r.Thresholds.Salary.DefaultAnnualSalary)
	}
	if r.Thresholds.Qualification.RequiredLevel("9999") != 7 || r.Thresholds.Qualification.RequiredLevel("2136") != 6 {
		t.Fatalf("classification levels not merged: %v", r.Thresholds.Qualification.ClassificationLevels)
	}
	if r.Extraction.KnownReferences["alex smith"] != "C9Z9Z9Z9Z9" || r.Extraction.KnownReferences["jane doe"] == "" {
		t.Fatalf("known references not merged: %v", r.Extraction.KnownReferences)
	}
	if _, leaked := signals.DefaultKnownReferences["alex smith"]; leaked {
		t.Fatalf("rules file must not modify package defaults")
	}
}

func TestLoadRulesRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("thresholds: [oops"), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestRulesApplyEnvironment(t *testing.T) {
	r := DefaultRules()
	r.Thresholds.Salary.DefaultAnnualSalary = 30000

	got := r.Apply(Config{SynthesizePayslips: true, SynthesisMaxMultiplier: 1.3})
	if !got.Extraction.SynthesizePayslips || got.Extraction.SynthesisMaxMultiplier != 1.3 {
		t.Fatalf("env overrides not applied: %+v", got.Extraction)
	}
	if got.Extraction.SynthesisMinMultiplier != 0.85 {
		t.Fatalf("unset override must keep rules value, got %v", got.Extraction.SynthesisMinMultiplier)
	}
	if got.Extraction.DefaultAnnualSalary != 30000 {
		t.Fatalf("salary fallback must follow thresholds, got %v", got.Extraction.DefaultAnnualSalary)
	}
}
