package leads

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-portal/internal/models"
	"partner-portal/internal/sheets"
	"partner-portal/internal/transformer"
)

var refNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newService(src sheets.Source) *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(src, transformer.New(time.UTC), "Leads", "B2B Copy", logger)
}

func seeded() *sheets.MemorySource {
	src := sheets.NewMemorySource()
	src.SetRows("Leads", [][]string{
		{"Email", "Phone", "Person Name", "Stage Name", "Organization Name", "Created"},
		{"a@x.com", "600 000 001", "Ana Lopez", "Lead", "Acme Homes", "2026-03-10"},
		{"", "", "", "", "", ""},
		{"b@x.com", "600000002", "Bo", "Qualifying", "  acme   HOMES ", "2026-03-11"},
		{"c@x.com", "600000003", "Cy", "Lead", "Other Co", "2026-03-12"},
	})
	src.SetRows("B2B Copy", [][]string{
		{"Email", "Phone", "Organization Name", "Duplicados", "Duplicado_otros_partners"},
		{"a@x.com", "", "Acme Homes", "1", "0"},
		{"", "600000003", "Other Co", "0", "1"},
	})
	return src
}

func TestLoadNormalizesAndAppliesFlags(t *testing.T) {
	ds, err := newService(seeded()).Load(context.Background(), refNow)
	require.NoError(t, err)

	require.Len(t, ds.Leads, 3, "blank rows are dropped")
	require.Len(t, ds.B2BLeads, 2)

	assert.True(t, ds.Leads[0].DuplicateSame)
	assert.False(t, ds.Leads[0].DuplicateOther)
	assert.False(t, ds.Leads[1].DuplicateSame)
	assert.True(t, ds.Leads[2].DuplicateOther, "phone key matches the flag row")

	assert.True(t, ds.B2BLeads[0].DuplicateSame)
	assert.True(t, ds.B2BLeads[1].DuplicateOther)
}

type failingSource struct {
	*sheets.MemorySource
	failTab string
}

func (f failingSource) ReadRows(ctx context.Context, tab string) ([][]string, error) {
	if tab == f.failTab {
		return nil, errors.New("boom")
	}
	return f.MemorySource.ReadRows(ctx, tab)
}

func TestLoadFailsWhenEitherTabFails(t *testing.T) {
	for _, tab := range []string{"Leads", "B2B Copy"} {
		_, err := newService(failingSource{MemorySource: seeded(), failTab: tab}).Load(context.Background(), refNow)
		assert.Error(t, err, tab)
	}
}

func TestLoadSurfacesMissingCredentials(t *testing.T) {
	_, err := newService(sheets.Unavailable{Err: sheets.ErrMissingCredentials}).Load(context.Background(), refNow)
	assert.ErrorIs(t, err, sheets.ErrMissingCredentials)
}

func TestDatasetForPartner(t *testing.T) {
	ds, err := newService(seeded()).Load(context.Background(), refNow)
	require.NoError(t, err)

	acme := ds.ForPartner("ACME Homes")
	assert.Len(t, acme.Leads, 2)
	assert.Len(t, acme.B2BLeads, 1)

	assert.Len(t, ds.ForPartner("").Leads, 3)
	assert.Empty(t, ds.ForPartner("Nobody").Leads)
}

func TestNormalizeOrg(t *testing.T) {
	assert.Equal(t, "acme homes", NormalizeOrg("  Acme \t Homes "))
	assert.Equal(t, NormalizeOrg("ÁLVARO Inmobiliaria"), NormalizeOrg("álvaro  inmobiliaria"))
	assert.Equal(t, "", NormalizeOrg("   "))
}

func TestFilterByPartnerKeepsAllWhenEmpty(t *testing.T) {
	leads := []models.NormalizedLead{{ID: "a", OrgName: "X"}, {ID: "b"}}
	assert.Equal(t, leads, FilterByPartner(leads, " "))
}
