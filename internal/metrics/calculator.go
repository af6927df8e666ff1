package metrics

import (
	"math"
	"sort"
	"strings"
	"time"

	"partner-portal/internal/models"
)

const (
	dayLayout = "2006-01-02"

	recentWindow = 30 * 24 * time.Hour
	weeklyWindow = 90 * 24 * time.Hour
	dailyPoints  = 30

	bankSubmissionStage = "bank submission"
	statusContacted     = "contacted"
)

type Calculator struct {
	location *time.Location
}

// NewCalculator buckets days and weeks in location (UTC when nil).
func NewCalculator(location *time.Location) *Calculator {
	if location == nil {
		location = time.UTC
	}
	return &Calculator{location: location}
}

// Build computes the dashboard payload relative to now. Duplicate counts and the weekly series
// read the sheet flags of b2bLeads when it is non-empty, else those of leads; the daily series
// follows the same collection. Live pairs in duplicates do not feed any count.
func (c *Calculator) Build(leads []models.NormalizedLead, duplicates []models.LeadDuplicate, b2bLeads []models.NormalizedLead, now time.Time) models.MetricsPayload {
	last30 := now.Add(-recentWindow)
	last90 := now.Add(-weeklyWindow)

	totalLeads := len(leads)
	lostLeads := 0
	bankSubmissionCount := 0
	leadsCreated := 0
	leadsContacted := 0
	leadsWon := 0

	for _, lead := range leads {
		if IsLost(lead) {
			lostLeads++
		}
		if strings.ToLower(lead.Stage) == bankSubmissionStage {
			bankSubmissionCount++
		}
		if lead.CreatedAt.Before(last30) {
			continue
		}
		leadsCreated++
		if lead.Status == statusContacted {
			leadsContacted++
		}
		if IsWon(lead) {
			leadsWon++
		}
	}

	source := leads
	if len(b2bLeads) > 0 {
		source = b2bLeads
	}

	duplicatesSame := 0
	duplicatesOther := 0
	for _, lead := range source {
		if lead.CreatedAt.Before(last30) {
			continue
		}
		if lead.DuplicateSame {
			duplicatesSame++
		}
		if lead.DuplicateOther {
			duplicatesOther++
		}
	}

	return models.MetricsPayload{
		Summary: models.MetricsSummary{
			TotalLeads:          totalLeads,
			ActiveLeads:         totalLeads - lostLeads,
			LostLeads:           lostLeads,
			LeadsCreated:        leadsCreated,
			LeadsContacted:      leadsContacted,
			LeadsWon:            leadsWon,
			DuplicatesSame:      duplicatesSame,
			DuplicatesOther:     duplicatesOther,
			ConversionRate:      c.safePercent(leadsWon, leadsCreated),
			BankSubmissionCount: bankSubmissionCount,
			BankSubmissionRate:  c.safePercent(bankSubmissionCount, totalLeads),
		},
		Daily:       c.daily(source, now),
		Weekly:      c.weekly(source, last90),
		LossReasons: LossReasons(leads),
	}
}

// IsLost is true when the lead carries a non-blank loss reason.
func IsLost(lead models.NormalizedLead) bool {
	return strings.TrimSpace(lead.LossReason) != ""
}

func IsWon(lead models.NormalizedLead) bool {
	return lead.Status == "won" || lead.Status == "converted"
}

func (c *Calculator) daily(leads []models.NormalizedLead, now time.Time) []models.DailyPoint {
	type dayCount struct{ leads, converted int }
	counts := make(map[string]*dayCount)
	for _, lead := range leads {
		key := lead.CreatedAt.In(c.location).Format(dayLayout)
		entry, ok := counts[key]
		if !ok {
			entry = &dayCount{}
			counts[key] = entry
		}
		entry.leads++
		if IsWon(lead) {
			entry.converted++
		}
	}

	today := c.midnight(now)
	points := make([]models.DailyPoint, 0, dailyPoints)
	for i := 0; i < dailyPoints; i++ {
		key := today.AddDate(0, 0, -(dailyPoints - 1 - i)).Format(dayLayout)
		point := models.DailyPoint{Day: key}
		if entry, ok := counts[key]; ok {
			point.Leads = entry.leads
			point.Converted = entry.converted
		}
		points = append(points, point)
	}
	return points
}

func (c *Calculator) weekly(leads []models.NormalizedLead, since time.Time) []models.WeeklyPoint {
	weeks := make(map[string]*models.WeeklyPoint)
	for _, lead := range leads {
		if lead.CreatedAt.Before(since) {
			continue
		}
		key := c.WeekStart(lead.CreatedAt).Format(dayLayout)
		entry, ok := weeks[key]
		if !ok {
			entry = &models.WeeklyPoint{Week: key}
			weeks[key] = entry
		}
		if lead.DuplicateSame {
			entry.Same++
		}
		if lead.DuplicateOther {
			entry.Other++
		}
	}

	points := make([]models.WeeklyPoint, 0, len(weeks))
	for _, entry := range weeks {
		points = append(points, *entry)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Week < points[j].Week })
	return points
}

// WeekStart returns local midnight of the Sunday starting t's week.
func (c *Calculator) WeekStart(t time.Time) time.Time {
	day := c.midnight(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func (c *Calculator) midnight(t time.Time) time.Time {
	local := t.In(c.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.location)
}

// LossReasons counts trimmed loss reasons, most frequent first; ties keep first-seen order.
func LossReasons(leads []models.NormalizedLead) []models.LossReasonCount {
	index := make(map[string]int)
	reasons := []models.LossReasonCount{}
	for _, lead := range leads {
		reason := strings.TrimSpace(lead.LossReason)
		if reason == "" {
			continue
		}
		if i, ok := index[reason]; ok {
			reasons[i].Count++
			continue
		}
		index[reason] = len(reasons)
		reasons = append(reasons, models.LossReasonCount{Reason: reason, Count: 1})
	}

	sort.SliceStable(reasons, func(i, j int) bool { return reasons[i].Count > reasons[j].Count })
	return reasons
}

func (c *Calculator) safePercent(numerator, denominator int) float64 {
	return c.safeDivide(float64(numerator)*100, float64(denominator))
}

func (c *Calculator) safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	result := numerator / denominator
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result
}
