package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-portal/internal/models"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "person_name", NormalizeHeader("Person Name"))
	assert.Equal(t, "contact_email_1t", NormalizeHeader("Contact  email 1T"))
	assert.Equal(t, "residents_loss_reason_opportunity", NormalizeHeader("[Residents] Loss reason Opportunity"))
	assert.Equal(t, "doc_completed", NormalizeHeader("Doc. Completed"))
}

func TestFindHeaderIndexUsesCandidatePriority(t *testing.T) {
	headers := []string{"Phone", "Contact phone 1T", "Email"}

	assert.Equal(t, 1, FindHeaderIndex(headers, []string{"Contact phone 1T", "phone"}))
	assert.Equal(t, 0, FindHeaderIndex(headers, []string{"phone", "Contact phone 1T"}))
	assert.Equal(t, -1, FindHeaderIndex(headers, []string{"fax"}))
	assert.Equal(t, -1, FindHeaderIndex(nil, []string{"email"}))
}

func TestResolveMarksMissingFieldsAbsent(t *testing.T) {
	cols := Resolve([]string{"Email", "Phone", "Person Name", "Stage Name"}, LeadSchema)

	assert.Equal(t, 0, cols.Index(models.FieldEmail))
	assert.Equal(t, 1, cols.Index(models.FieldPhone))
	assert.Equal(t, 2, cols.Index(models.FieldName))
	assert.Equal(t, 3, cols.Index(models.FieldStage))
	assert.Equal(t, -1, cols.Index(models.FieldLossReason))
	assert.Equal(t, -1, cols.Index(models.FieldFirstName))
	assert.Equal(t, -1, Columns{}.Index(models.FieldEmail))
}

func TestMapRowsDropsBlankRowsAndTrims(t *testing.T) {
	rows := [][]string{
		{"Email", "Phone", "Person Name", "Stage Name"},
		{" a@x.com ", "600 111 222", " Ana Lopez ", "Lead"},
		{"", "  ", "", ""},
		{},
		{"b@x.com"},
	}

	raws := MapRows(rows, LeadSchema)
	require.Len(t, raws, 2)

	assert.Equal(t, "a@x.com", raws[0].Value(models.FieldEmail))
	assert.Equal(t, "Ana Lopez", raws[0].Value(models.FieldName))
	assert.Equal(t, "Lead", raws[0].Value(models.FieldStage))

	_, ok := raws[1].Get(models.FieldPhone)
	assert.False(t, ok, "short rows leave trailing fields absent")
	_, ok = raws[0].Get(models.FieldLossReason)
	assert.False(t, ok, "unresolved columns stay absent")
}

func TestMapRowsEmptyInput(t *testing.T) {
	assert.Empty(t, MapRows(nil, LeadSchema))
	assert.Empty(t, MapRows([][]string{{"Email"}}, LeadSchema))
}

func TestIsBlankRow(t *testing.T) {
	assert.True(t, IsBlankRow([]string{" ", "\t", ""}))
	assert.True(t, IsBlankRow(nil))
	assert.False(t, IsBlankRow([]string{"", "x"}))
}
