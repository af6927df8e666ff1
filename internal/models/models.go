package models

import (
	"time"
)

// Field is a logical lead column, independent of the header text used in a given sheet.
type Field string

const (
	FieldEmail          Field = "email"
	FieldPhone          Field = "phone"
	FieldName           Field = "name"
	FieldFirstName      Field = "firstName"
	FieldLastName       Field = "lastName"
	FieldStatus         Field = "status"
	FieldStage          Field = "stage"
	FieldSource         Field = "source"
	FieldCreatedAt      Field = "createdAt"
	FieldPartner        Field = "partner"
	FieldOrgName        Field = "orgName"
	FieldDealID         Field = "dealId"
	FieldLossReason     Field = "lossReason"
	FieldDuplicateSame  Field = "duplicateSame"
	FieldDuplicateOther Field = "duplicateOther"
	FieldRole           Field = "role"
)

// RawLead holds the trimmed cell values of one data row. A key is present only when
// its column resolved and the row actually has a cell at that position.
type RawLead map[Field]string

func (r RawLead) Get(field Field) (string, bool) {
	v, ok := r[field]
	return v, ok
}

// Value returns the cell value or "" when absent.
func (r RawLead) Value(field Field) string {
	return r[field]
}

// Data Quality Tracking Structures
type FieldIssue struct {
	Field         Field  `json:"field"`
	Description   string `json:"description"`
	OriginalValue string `json:"originalValue,omitempty"`
}

type RecordQuality struct {
	RecordID string       `json:"recordId"`
	Tab      string       `json:"tab"`
	Row      int          `json:"row"`
	IsValid  bool         `json:"isValid"`
	Issues   []FieldIssue `json:"issues,omitempty"`
}

// NormalizedLead is one sheet row after identity normalization and date parsing.
// Empty strings mean the value was absent in the source row.
type NormalizedLead struct {
	ID             string    `json:"id"`
	SourceKey      string    `json:"sourceKey,omitempty"`
	EmailRaw       string    `json:"emailRaw,omitempty"`
	EmailNorm      string    `json:"emailNorm,omitempty"`
	PhoneRaw       string    `json:"phoneRaw,omitempty"`
	PhoneNorm      string    `json:"phoneNorm,omitempty"`
	NameRaw        string    `json:"nameRaw,omitempty"`
	FirstName      string    `json:"firstName,omitempty"`
	LastName       string    `json:"lastName,omitempty"`
	Status         string    `json:"status,omitempty"`
	Stage          string    `json:"stage,omitempty"`
	Source         string    `json:"source,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	Partner        string    `json:"partner,omitempty"`
	OrgName        string    `json:"orgName,omitempty"`
	DealID         string    `json:"dealId,omitempty"`
	LossReason     string    `json:"lossReason,omitempty"`
	DuplicateSame  bool      `json:"duplicateSame"`
	DuplicateOther bool      `json:"duplicateOther"`

	Quality RecordQuality `json:"-"`
}

type DuplicateRule string

const (
	RuleEmail DuplicateRule = "email"
	RulePhone DuplicateRule = "phone"
	RuleFlag  DuplicateRule = "flag"
)

type DuplicateType string

const (
	SamePartner   DuplicateType = "same_partner"
	OtherPartners DuplicateType = "other_partners"
)

type LeadDuplicate struct {
	ID            string         `json:"id"`
	LeadID        string         `json:"leadId"`
	MatchedLeadID string         `json:"matchedLeadId"`
	Rule          DuplicateRule  `json:"rule"`
	Type          DuplicateType  `json:"type"`
	CreatedAt     time.Time      `json:"createdAt"`
	Original      NormalizedLead `json:"original"`
	Matched       NormalizedLead `json:"matched"`
}

type StageCount struct {
	Stage      string  `json:"stage"`
	RawStage   string  `json:"rawStage"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	ShortLabel string  `json:"shortLabel"`
	Color      string  `json:"color"`
}

type StagePayload struct {
	Total         int          `json:"total"`
	CountsByStage []StageCount `json:"countsByStage"`
}

// Business metrics
type MetricsSummary struct {
	TotalLeads          int     `json:"totalLeads"`
	ActiveLeads         int     `json:"activeLeads"`
	LostLeads           int     `json:"lostLeads"`
	LeadsCreated        int     `json:"leadsCreated"`
	LeadsContacted      int     `json:"leadsContacted"`
	LeadsWon            int     `json:"leadsWon"`
	DuplicatesSame      int     `json:"duplicatesSame"`
	DuplicatesOther     int     `json:"duplicatesOther"`
	ConversionRate      float64 `json:"conversionRate"`
	BankSubmissionCount int     `json:"bankSubmissionCount"`
	BankSubmissionRate  float64 `json:"bankSubmissionRate"`
}

type DailyPoint struct {
	Day       string `json:"day"`
	Leads     int    `json:"leads"`
	Converted int    `json:"converted"`
}

type WeeklyPoint struct {
	Week  string `json:"week"`
	Same  int    `json:"same"`
	Other int    `json:"other"`
}

type LossReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

type MetricsPayload struct {
	Summary     MetricsSummary    `json:"summary"`
	Daily       []DailyPoint      `json:"daily"`
	Weekly      []WeeklyPoint     `json:"weekly"`
	LossReasons []LossReasonCount `json:"lossReasons"`
}

// LeadView is a NormalizedLead as served to the frontend, with its resolved duplicate type.
type LeadView struct {
	NormalizedLead
	DuplicateType *DuplicateType `json:"duplicateType"`
}

// Data Quality Report Structures
type QualitySummary struct {
	TotalRecords int      `json:"totalRecords"`
	ValidRecords int      `json:"validRecords"`
	QualityScore float64  `json:"qualityScore"`
	CommonIssues []string `json:"commonIssues"`
}

type DataQualityReport struct {
	Summary   QualitySummary  `json:"summary"`
	Records   []RecordQuality `json:"records"`
	Timestamp string          `json:"timestamp"`
}
