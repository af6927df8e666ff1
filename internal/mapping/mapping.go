// Package mapping resolves sheet headers to logical lead fields and projects rows onto them.
package mapping

import (
	"regexp"
	"strings"

	"partner-portal/internal/models"
)

var (
	whitespaceRe = regexp.MustCompile(`[\s\p{Z}]+`)
	nonWordRe    = regexp.MustCompile(`[^a-z0-9_]`)
)

// FieldCandidates lists acceptable header names for one field, highest priority first.
type FieldCandidates struct {
	Field      models.Field
	Candidates []string
}

// Schema is an ordered field -> candidates table.
type Schema []FieldCandidates

// LeadSchema covers the leads tab and the B2B copy tab.
var LeadSchema = Schema{
	{models.FieldEmail, []string{"email", "Contact email 1T"}},
	{models.FieldPhone, []string{"Contact phone 1T", "phone"}},
	{models.FieldName, []string{
		"person_name", "person name", "name", "full_name", "full name", "nombre_completo",
		"nombre completo", "contact name", "lead name", "nombre",
	}},
	{models.FieldFirstName, []string{"first_name", "first name", "nombre", "given name", "nombre_first"}},
	{models.FieldLastName, []string{"last_name", "last name", "apellido", "apellidos", "family name"}},
	{models.FieldStatus, []string{"status", "estado"}},
	{models.FieldStage, []string{
		"stage_name", "stage name", "stage", "etapa", "fase", "pipeline_stage", "pipeline",
	}},
	{models.FieldSource, []string{
		"organization_name", "organization name", "lead source", "lead_source", "source", "fuente", "origen",
	}},
	{models.FieldCreatedAt, []string{"created_at", "created", "fecha", "date", "timestamp", "deal created"}},
	{models.FieldPartner, []string{"partner", "partner_name", "org", "org_name", "company", "empresa"}},
	{models.FieldOrgName, []string{"organization_name", "organization name", "org_name", "organization"}},
	{models.FieldDealID, []string{"deal_id", "deal id", "id", "record_id"}},
	{models.FieldLossReason, []string{
		"lost_reason_opportunity",
		"lost reason opportunity",
		"[residents] loss reason opportunity",
		"[residents] lost reason opportunity",
		"loss reason",
		"loss_reason",
		"motivo cierre",
		"motivo_cierre",
	}},
	{models.FieldDuplicateSame, []string{"duplicados", "dup_same", "duplicate_same"}},
	{models.FieldDuplicateOther, []string{
		"duplicado_otros_partners", "duplicado_otro_partner", "dup_other", "duplicate_other",
	}},
}

// NormalizeHeader lowercases, turns whitespace runs into "_" and drops anything outside [a-z0-9_].
func NormalizeHeader(value string) string {
	s := strings.ToLower(value)
	s = whitespaceRe.ReplaceAllString(s, "_")
	return nonWordRe.ReplaceAllString(s, "")
}

// FindHeaderIndex returns the column of the first candidate present in headers, or -1.
func FindHeaderIndex(headers []string, candidates []string) int {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}
	return findNormalized(normalized, candidates)
}

func findNormalized(normalized []string, candidates []string) int {
	for _, candidate := range candidates {
		want := NormalizeHeader(candidate)
		for i, h := range normalized {
			if h == want {
				return i
			}
		}
	}
	return -1
}

// Columns maps each field of a schema to its resolved column, -1 when absent.
type Columns map[models.Field]int

// Resolve maps every field of schema against one header row.
func Resolve(headers []string, schema Schema) Columns {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	cols := make(Columns, len(schema))
	for _, fc := range schema {
		cols[fc.Field] = findNormalized(normalized, fc.Candidates)
	}
	return cols
}

// Index returns the resolved column for field, -1 when unresolved or unknown.
func (c Columns) Index(field models.Field) int {
	if idx, ok := c[field]; ok {
		return idx
	}
	return -1
}

// Project builds a RawLead from one row. Short rows simply leave trailing fields absent.
func (c Columns) Project(row []string) models.RawLead {
	raw := make(models.RawLead, len(c))
	for field, idx := range c {
		if idx < 0 || idx >= len(row) {
			continue
		}
		raw[field] = strings.TrimSpace(row[idx])
	}
	return raw
}

// IsBlankRow reports whether every cell is empty or whitespace.
func IsBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// MapRows treats rows[0] as the header row, drops blank data rows and projects the rest.
func MapRows(rows [][]string, schema Schema) []models.RawLead {
	if len(rows) == 0 {
		return nil
	}

	cols := Resolve(rows[0], schema)
	raws := make([]models.RawLead, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if IsBlankRow(row) {
			continue
		}
		raws = append(raws, cols.Project(row))
	}
	return raws
}
