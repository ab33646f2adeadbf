package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

// assessmentCollectors count completed assessments. Both processes run the
// pipeline, so both registries carry them.
type assessmentCollectors struct {
	service string

	assessmentsTotal *prometheus.CounterVec
	redFlagsTotal    *prometheus.CounterVec
	narrativesTotal  *prometheus.CounterVec
	incompleteTotal  *prometheus.CounterVec
}

func newAssessmentCollectors(service string) *assessmentCollectors {
	return &assessmentCollectors{
		service: service,
		assessmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "compliance",
				Subsystem: "assessment",
				Name:      "total",
				Help:      "Completed assessments by domain and verdict.",
			},
			[]string{"service", "domain", "status", "risk_level"},
		),
		redFlagsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "compliance",
				Subsystem: "assessment",
				Name:      "red_flags_total",
				Help:      "Red-flagged assessments by domain.",
			},
			[]string{"service", "domain"},
		),
		narrativesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "compliance",
				Subsystem: "narrative",
				Name:      "total",
				Help:      "Assessment narratives by source.",
			},
			[]string{"service", "source"},
		),
		incompleteTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "compliance",
				Subsystem: "extraction",
				Name:      "fallback_total",
				Help:      "Fallback values used during extraction by field.",
			},
			[]string{"service", "field"},
		),
	}
}

func (c *assessmentCollectors) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.assessmentsTotal, c.redFlagsTotal, c.narrativesTotal, c.incompleteTotal}
}

func (c *assessmentCollectors) RecordAssessment(a domain.ComplianceAssessment) {
	c.assessmentsTotal.WithLabelValues(
		c.service,
		string(a.Domain),
		string(a.Verdict.Status),
		string(a.Verdict.RiskLevel),
	).Inc()
	if a.Verdict.RedFlag {
		c.redFlagsTotal.WithLabelValues(c.service, string(a.Domain)).Inc()
	}
	source := string(a.NarrativeSource)
	if source == "" {
		source = "unknown"
	}
	c.narrativesTotal.WithLabelValues(c.service, source).Inc()
	for _, field := range a.Facts.Incomplete {
		c.incompleteTotal.WithLabelValues(c.service, field).Inc()
	}
}
