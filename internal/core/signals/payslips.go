package signals

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/sponsor-compliance/internal/core/domain"
)

const periodLayout = "2006-01"

var (
	scheduleLinePattern = regexp.MustCompile(`(?im)^\s*(\d{4}-\d{2}|[A-Za-z]{3,9}\s+\d{4}|\d{1,2}/\d{4})\s*[:\-|,]?\s*£?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)\s*$`)
	payAmountPattern    = regexp.MustCompile(`(?i)\b(?:gross\s+pay|total\s+(?:gross\s+)?pay|total\s+payments|net\s+pay)\s*[:\-]?\s*£?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	payPeriodPattern    = regexp.MustCompile(`(?i)\b(?:pay\s+period|period|pay\s+date|month)\s*[:\-]?\s*(\d{4}-\d{2}|[A-Za-z]{3,9}\s+\d{4}|\d{1,2}/\d{4})`)
	nameAmountPattern   = regexp.MustCompile(`£\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)|\b([0-9]{3,}\.[0-9]{2})\b`)
	namePeriodPattern   = regexp.MustCompile(`(?i)\b(\d{4}[-_]\d{2}|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[\s_\-]+\d{4})\b`)
)

func parsePeriod(raw string) (string, bool) {
	value := collapseSpaces(strings.ReplaceAll(strings.ReplaceAll(raw, "_", " "), "-", " "))
	layouts := []string{"2006 01", "January 2006", "Jan 2006", "1/2006", "01/2006"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(periodLayout), true
		}
	}
	return "", false
}

// parsePayslips reads real pay figures from payslip documents: schedule lines
// first, then a labelled pay amount per document, then an amount in the file
// name. Entries are returned in period order.
func parsePayslips(docs []domain.Document) []domain.PayslipEntry {
	byPeriod := make(map[string]float64)
	var unperiodised []float64

	add := func(period string, amount float64) {
		if period == "" {
			unperiodised = append(unperiodised, amount)
			return
		}
		if _, seen := byPeriod[period]; !seen {
			byPeriod[period] = amount
		}
	}

	for _, doc := range docs {
		lines := scheduleLinePattern.FindAllStringSubmatch(doc.ExtractedText, -1)
		if len(lines) > 0 {
			for _, line := range lines {
				period, okPeriod := parsePeriod(line[1])
				amount, okAmount := parseAmount(line[2])
				if okPeriod && okAmount {
					add(period, amount)
				}
			}
			continue
		}

		period := ""
		if m := payPeriodPattern.FindStringSubmatch(doc.ExtractedText); m != nil {
			period, _ = parsePeriod(m[1])
		}
		if period == "" {
			if m := namePeriodPattern.FindStringSubmatch(stripExtension(doc.Name)); m != nil {
				period, _ = parsePeriod(m[1])
			}
		}

		if m := payAmountPattern.FindStringSubmatch(doc.ExtractedText); m != nil {
			if amount, ok := parseAmount(m[1]); ok {
				add(period, amount)
				continue
			}
		}
		if m := nameAmountPattern.FindStringSubmatch(doc.Name); m != nil {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			if amount, ok := parseAmount(raw); ok {
				add(period, amount)
			}
		}
	}

	periods := make([]string, 0, len(byPeriod))
	for period := range byPeriod {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	out := make([]domain.PayslipEntry, 0, len(periods)+len(unperiodised))
	for _, period := range periods {
		out = append(out, domain.PayslipEntry{Period: period, AmountPaid: byPeriod[period]})
	}
	for i, amount := range unperiodised {
		out = append(out, domain.PayslipEntry{Period: "unknown-" + strconv.Itoa(i+1), AmountPaid: amount})
	}
	return out
}

type synthesisPlan struct {
	Months        int
	Baseline      float64
	MinMultiplier float64
	MaxMultiplier float64
	End           time.Time
}

// synthesizePayslips draws one amount per month around the baseline. Periods
// run backwards from End and are returned oldest first.
func synthesizePayslips(plan synthesisPlan, random RandomSource) []domain.PayslipEntry {
	if plan.Months <= 0 || plan.Baseline <= 0 {
		return nil
	}
	low, high := plan.MinMultiplier, plan.MaxMultiplier
	if high < low {
		low, high = high, low
	}

	end := time.Date(plan.End.Year(), plan.End.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.PayslipEntry, plan.Months)
	for i := 0; i < plan.Months; i++ {
		multiplier := low + random.Float64()*(high-low)
		out[plan.Months-1-i] = domain.PayslipEntry{
			Period:      end.AddDate(0, -i, 0).Format(periodLayout),
			AmountPaid:  roundPence(plan.Baseline * multiplier),
			Synthesized: true,
		}
	}
	return out
}

func roundPence(v float64) float64 {
	return math.Round(v*100) / 100
}
