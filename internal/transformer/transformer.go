package transformer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"partner-portal/internal/models"
)

// Namespace for lead source keys (UUIDv5).
var sourceKeyNamespace = uuid.MustParse("6f1c1b5e-3a0e-4d55-9a57-2f3c8c7f4b10")

var whitespaceRe = regexp.MustCompile(`[\s\p{Z}]+`)

type Transformer struct {
	emailRegex *regexp.Regexp
	location   *time.Location
}

func New(location *time.Location) *Transformer {
	if location == nil {
		location = time.UTC
	}
	return &Transformer{
		emailRegex: regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`),
		location:   location,
	}
}

// DuplicateFlags is the pre-flagged duplicate state of one contact in the B2B copy tab.
type DuplicateFlags struct {
	Same  bool
	Other bool
}

// FlagIndex looks up duplicate flags by normalized email or phone.
type FlagIndex struct {
	byEmail map[string]DuplicateFlags
	byPhone map[string]DuplicateFlags
}

// NormalizeLeads converts the mapped rows of one tab. now replaces missing or unparsable dates.
func (t *Transformer) NormalizeLeads(tab string, raws []models.RawLead, now time.Time) []models.NormalizedLead {
	leads := make([]models.NormalizedLead, 0, len(raws))
	for i, raw := range raws {
		leads = append(leads, t.NormalizeLead(tab, raw, i, now))
	}
	return leads
}

// NormalizeFlaggedLeads is NormalizeLeads for the B2B copy tab, whose rows carry their own flags.
func (t *Transformer) NormalizeFlaggedLeads(tab string, raws []models.RawLead, now time.Time) []models.NormalizedLead {
	leads := t.NormalizeLeads(tab, raws, now)
	for i, raw := range raws {
		flags := rawFlags(raw)
		leads[i].DuplicateSame = flags.Same
		leads[i].DuplicateOther = flags.Other
	}
	return leads
}

func (t *Transformer) NormalizeLead(tab string, raw models.RawLead, index int, now time.Time) models.NormalizedLead {
	quality := models.RecordQuality{
		RecordID: fmt.Sprintf("%s_%d", tab, index),
		Tab:      tab,
		Row:      index,
		IsValid:  true,
	}

	emailRaw := raw.Value(models.FieldEmail)
	phoneRaw := raw.Value(models.FieldPhone)
	nameRaw := raw.Value(models.FieldName)

	firstName, lastName := SplitName(nameRaw)
	if v, ok := raw.Get(models.FieldFirstName); ok {
		firstName = v
	}
	if v, ok := raw.Get(models.FieldLastName); ok {
		lastName = v
	}

	lead := models.NormalizedLead{
		ID:         BuildLeadID(emailRaw, phoneRaw, index),
		SourceKey:  BuildSourceKey(tab, raw),
		EmailRaw:   emailRaw,
		EmailNorm:  t.validateEmail(emailRaw, &quality),
		PhoneRaw:   phoneRaw,
		PhoneNorm:  t.validatePhone(phoneRaw, &quality),
		NameRaw:    nameRaw,
		FirstName:  firstName,
		LastName:   lastName,
		Status:     strings.ToLower(raw.Value(models.FieldStatus)),
		Stage:      strings.TrimSpace(raw.Value(models.FieldStage)),
		Source:     raw.Value(models.FieldSource),
		CreatedAt:  t.validateAndParseDate(raw.Value(models.FieldCreatedAt), now, &quality),
		Partner:    raw.Value(models.FieldPartner),
		OrgName:    raw.Value(models.FieldOrgName),
		DealID:     raw.Value(models.FieldDealID),
		LossReason: raw.Value(models.FieldLossReason),
	}

	quality.IsValid = len(quality.Issues) == 0
	lead.Quality = quality
	return lead
}

// NormalizeEmail trims and lowercases; "" means absent.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps ASCII digits only; "" means absent.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitName splits a combined name into first token and the remaining tokens.
func SplitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// BuildLeadID is unique within one fetch of one tab only.
func BuildLeadID(email, phone string, index int) string {
	if email == "" {
		email = "lead"
	}
	if phone == "" {
		phone = "phone"
	}
	return whitespaceRe.ReplaceAllString(fmt.Sprintf("%s-%s-%d", email, phone, index), "-")
}

// BuildSourceKey derives a stable key from the tab name and every projected cell.
func BuildSourceKey(tab string, raw models.RawLead) string {
	fields := make([]string, 0, len(raw))
	for field := range raw {
		fields = append(fields, string(field))
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString(tab)
	for _, field := range fields {
		b.WriteByte(0)
		b.WriteString(field)
		b.WriteByte('=')
		b.WriteString(raw[models.Field(field)])
	}
	return uuid.NewSHA1(sourceKeyNamespace, []byte(b.String())).String()
}

// BuildFlagIndex indexes the B2B copy rows. Later rows overwrite earlier ones for the same key.
func BuildFlagIndex(raws []models.RawLead) FlagIndex {
	idx := FlagIndex{
		byEmail: make(map[string]DuplicateFlags),
		byPhone: make(map[string]DuplicateFlags),
	}
	for _, raw := range raws {
		flags := rawFlags(raw)
		if email := NormalizeEmail(raw.Value(models.FieldEmail)); email != "" {
			idx.byEmail[email] = flags
		}
		if phone := NormalizePhone(raw.Value(models.FieldPhone)); phone != "" {
			idx.byPhone[phone] = flags
		}
	}
	return idx
}

// Apply sets the duplicate flags of each lead from the index, matching by email or phone.
func (idx FlagIndex) Apply(leads []models.NormalizedLead) {
	for i := range leads {
		var byEmail, byPhone DuplicateFlags
		if leads[i].EmailNorm != "" {
			byEmail = idx.byEmail[leads[i].EmailNorm]
		}
		if leads[i].PhoneNorm != "" {
			byPhone = idx.byPhone[leads[i].PhoneNorm]
		}
		leads[i].DuplicateSame = byEmail.Same || byPhone.Same
		leads[i].DuplicateOther = byEmail.Other || byPhone.Other
	}
}

func rawFlags(raw models.RawLead) DuplicateFlags {
	return DuplicateFlags{
		Same:  strings.TrimSpace(raw.Value(models.FieldDuplicateSame)) == "1",
		Other: strings.TrimSpace(raw.Value(models.FieldDuplicateOther)) == "1",
	}
}

// Field Validators
func (t *Transformer) validateEmail(email string, quality *models.RecordQuality) string {
	norm := NormalizeEmail(email)
	if norm != "" && !t.emailRegex.MatchString(norm) {
		addIssue(quality, models.FieldEmail, "Invalid email format", email)
	}
	return norm
}

func (t *Transformer) validatePhone(phone string, quality *models.RecordQuality) string {
	norm := NormalizePhone(phone)
	if phone != "" && norm == "" {
		addIssue(quality, models.FieldPhone, "Phone has no digits, treated as missing", phone)
	}
	return norm
}

func (t *Transformer) validateAndParseDate(value string, now time.Time, quality *models.RecordQuality) time.Time {
	if strings.TrimSpace(value) == "" {
		addIssue(quality, models.FieldCreatedAt, "Missing - createdAt is empty, using processing time", value)
		return now
	}

	parsed, err := dateparse.ParseIn(value, t.location)
	if err != nil {
		addIssue(quality, models.FieldCreatedAt, "Invalid date format, using processing time", value)
		return now
	}
	return parsed
}

func addIssue(quality *models.RecordQuality, field models.Field, description, original string) {
	quality.Issues = append(quality.Issues, models.FieldIssue{
		Field:         field,
		Description:   description,
		OriginalValue: original,
	})
}

// Generate Quality Report
func (t *Transformer) GenerateQualityReport(leads []models.NormalizedLead, now time.Time) models.DataQualityReport {
	records := make([]models.RecordQuality, 0, len(leads))
	valid := 0
	for _, lead := range leads {
		records = append(records, lead.Quality)
		if lead.Quality.IsValid {
			valid++
		}
	}

	score := 0.0
	if len(leads) > 0 {
		score = float64(valid) / float64(len(leads)) * 100
	}

	return models.DataQualityReport{
		Summary: models.QualitySummary{
			TotalRecords: len(leads),
			ValidRecords: valid,
			QualityScore: score,
			CommonIssues: t.identifyCommonIssues(leads),
		},
		Records:   records,
		Timestamp: now.Format(time.RFC3339),
	}
}

func (t *Transformer) identifyCommonIssues(leads []models.NormalizedLead) []string {
	issueCount := make(map[string]int)
	var order []string

	for _, lead := range leads {
		for _, issue := range lead.Quality.Issues {
			if issueCount[issue.Description] == 0 {
				order = append(order, issue.Description)
			}
			issueCount[issue.Description]++
		}
	}

	commonIssues := []string{}
	for _, issue := range order {
		if count := issueCount[issue]; count > 1 { // Only include issues that appear more than once
			commonIssues = append(commonIssues, fmt.Sprintf("%s (occurs %d times)", issue, count))
		}
	}
	return commonIssues
}
