// Package stages classifies free-text pipeline stages into the canonical sales funnel
// and aggregates leads per stage.
package stages

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"partner-portal/internal/models"
)

const Other = "Other"

// Canonical is the sales funnel, in order.
var Canonical = []string{
	"Lead",
	"Trying to connect",
	"Qualifying",
	"Doc Collection",
	"Doc. Completed",
	"Dossier validated",
	"Bank Submission",
	"Bank offers received",
	"Pre - Valuation",
	"Valuation",
	"FEIN",
	"Notary - Formalization",
	"Notary - Signature",
}

var ShortLabels = map[string]string{
	"Lead":                   "Lead",
	"Trying to connect":      "Connect",
	"Qualifying":             "Qualify",
	"Doc Collection":         "Docs",
	"Doc. Completed":         "Docs Done",
	"Dossier validated":      "Validated",
	"Bank Submission":        "Submission",
	"Bank offers received":   "Offers",
	"Pre - Valuation":        "Pre-Val",
	"Valuation":              "Valuation",
	"FEIN":                   "FEIN",
	"Notary - Formalization": "Notary",
	"Notary - Signature":     "Signature",
	Other:                    "Other",
}

var Colors = map[string]string{
	"Lead":                   "hsl(142, 76%, 36%)",
	"Trying to connect":      "hsl(142, 69%, 42%)",
	"Qualifying":             "hsl(82, 85%, 45%)",
	"Doc Collection":         "hsl(82, 85%, 50%)",
	"Doc. Completed":         "hsl(45, 93%, 47%)",
	"Dossier validated":      "hsl(142, 71%, 30%)",
	"Bank Submission":        "hsl(201, 96%, 32%)",
	"Bank offers received":   "hsl(201, 90%, 40%)",
	"Pre - Valuation":        "hsl(271, 76%, 53%)",
	"Valuation":              "hsl(142, 76%, 26%)",
	"FEIN":                   "hsl(142, 76%, 20%)",
	"Notary - Formalization": "hsl(170, 50%, 35%)",
	"Notary - Signature":     "hsl(170, 50%, 25%)",
	Other:                    "hsl(215, 14%, 60%)",
}

// maxRawExamples bounds the raw spellings kept per bucket for tooltips.
const maxRawExamples = 3

var wordSplitRe = regexp.MustCompile(`[\s\p{Z}\-_]+`)

// Classify maps a raw stage to a canonical stage or Other.
// Tiers, first match wins: exact, prefix either way, significant-word overlap.
func Classify(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return Other
	}

	for _, canonical := range Canonical {
		if trimmed == strings.ToLower(canonical) {
			return canonical
		}
	}

	for _, canonical := range Canonical {
		lower := strings.ToLower(canonical)
		if strings.HasPrefix(trimmed, lower) || strings.HasPrefix(lower, trimmed) {
			return canonical
		}
	}

	rawWords := significantWords(trimmed)
	for _, canonical := range Canonical {
		for _, cw := range significantWords(strings.ToLower(canonical)) {
			for _, rw := range rawWords {
				if rw == cw || strings.Contains(cw, rw) || strings.Contains(rw, cw) {
					return canonical
				}
			}
		}
	}

	return Other
}

func significantWords(s string) []string {
	var words []string
	for _, w := range wordSplitRe.Split(s, -1) {
		if utf8.RuneCountInString(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}

type bucket struct {
	count       int
	rawExamples []string
}

// Aggregation is the stage breakdown of a lead collection.
type Aggregation struct {
	Total          int
	CountsByStage  []models.StageCount
	RawToCanonical map[string]string
}

func (a Aggregation) Payload() models.StagePayload {
	return models.StagePayload{Total: a.Total, CountsByStage: a.CountsByStage}
}

// Aggregate counts raw stages per canonical stage. Every canonical stage is reported,
// Other only when non-empty.
func Aggregate(rawStages []string) Aggregation {
	buckets := make(map[string]*bucket, len(Canonical)+1)
	for _, stage := range Canonical {
		buckets[stage] = &bucket{}
	}
	buckets[Other] = &bucket{}

	rawToCanonical := make(map[string]string)
	for _, raw := range rawStages {
		stage := Classify(raw)
		rawToCanonical[raw] = stage

		b := buckets[stage]
		b.count++
		if raw != "" && len(b.rawExamples) < maxRawExamples && !contains(b.rawExamples, raw) {
			b.rawExamples = append(b.rawExamples, raw)
		}
	}

	total := len(rawStages)
	counts := make([]models.StageCount, 0, len(Canonical)+1)
	for _, stage := range append(append([]string{}, Canonical...), Other) {
		b := buckets[stage]
		if stage == Other && b.count == 0 {
			continue
		}

		rawStage := stage
		if len(b.rawExamples) > 0 {
			rawStage = b.rawExamples[0]
		}

		counts = append(counts, models.StageCount{
			Stage:      stage,
			RawStage:   rawStage,
			Count:      b.count,
			Percentage: percentage(b.count, total),
			ShortLabel: shortLabel(stage),
			Color:      color(stage),
		})
	}

	return Aggregation{Total: total, CountsByStage: counts, RawToCanonical: rawToCanonical}
}

// AggregateLeads aggregates the stage of each lead.
func AggregateLeads(leads []models.NormalizedLead) Aggregation {
	raws := make([]string, len(leads))
	for i, lead := range leads {
		raws[i] = lead.Stage
	}
	return Aggregate(raws)
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func shortLabel(stage string) string {
	if label, ok := ShortLabels[stage]; ok {
		return label
	}
	return stage
}

func color(stage string) string {
	if c, ok := Colors[stage]; ok {
		return c
	}
	return Colors[Other]
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
