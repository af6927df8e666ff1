package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-portal/internal/models"
	"partner-portal/internal/sheets"
)

var fixtureTabs = map[string][][]string{
	"Bayteca_leads_2026": {
		{"Email", "Phone", "Person Name", "Stage Name", "Partner", "Organization Name", "Loss Reason"},
		{"a@x.com", "600000001", "Ana Lopez", "Lead", "P1", "Acme", ""},
		{"a@x.com", "600000002", "Ana L", "Qualifying", "P2", "Acme", ""},
		{"c@x.com", "600000003", "Cy", "Lead", "P1", "Zeta", "Price"},
	},
	"B2B Copy": {
		{"Email", "Duplicados"},
	},
}

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var out bytes.Buffer
	cmd := newRootCmd(logger)
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.Bytes()
}

func seedFile(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(fixtureTabs)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestStagesFromSeed(t *testing.T) {
	var payload models.StagePayload
	require.NoError(t, json.Unmarshal(run(t, "stages", "--seed", seedFile(t)), &payload))
	assert.Equal(t, 3, payload.Total)

	require.NoError(t, json.Unmarshal(run(t, "stages", "--active-only", "--seed", seedFile(t)), &payload))
	assert.Equal(t, 2, payload.Total)
}

func TestDuplicatesFromWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, sheets.WriteWorkbook(path, fixtureTabs))

	var body struct {
		Duplicates []models.LeadDuplicate `json:"duplicates"`
	}
	require.NoError(t, json.Unmarshal(run(t, "duplicates", "--workbook", path), &body))

	require.Len(t, body.Duplicates, 1)
	assert.Equal(t, models.RuleEmail, body.Duplicates[0].Rule)
	assert.Equal(t, models.OtherPartners, body.Duplicates[0].Type)
}

func TestLeadsPartnerFilter(t *testing.T) {
	var body struct {
		Leads []models.NormalizedLead `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(run(t, "leads", "--partner", "zeta", "--seed", seedFile(t)), &body))

	require.Len(t, body.Leads, 1)
	assert.Equal(t, "c@x.com", body.Leads[0].EmailNorm)
}

func TestMetricsFromSeed(t *testing.T) {
	var payload models.MetricsPayload
	require.NoError(t, json.Unmarshal(run(t, "metrics", "--seed", seedFile(t)), &payload))

	assert.Equal(t, 3, payload.Summary.TotalLeads)
	assert.Equal(t, 1, payload.Summary.LostLeads)
	assert.Len(t, payload.Daily, 30)
}

func TestMissingTabFails(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cmd := newRootCmd(logger)
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"leads", "--seed", seedFile(t), "--leads-tab", "Nope"})
	assert.ErrorIs(t, cmd.Execute(), sheets.ErrTabNotFound)
}

func TestExportRoundTripsThroughWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.xlsx")
	run(t, "export", "--out", path, "--seed", seedFile(t))

	var body struct {
		Duplicates []models.LeadDuplicate `json:"duplicates"`
	}
	require.NoError(t, json.Unmarshal(run(t, "duplicates", "--workbook", path), &body))
	require.Len(t, body.Duplicates, 1)
	assert.Equal(t, models.OtherPartners, body.Duplicates[0].Type)
}

func TestExportRequiresOut(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cmd := newRootCmd(logger)
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"export", "--seed", seedFile(t)})
	assert.Error(t, cmd.Execute())
}
