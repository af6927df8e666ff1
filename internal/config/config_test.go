package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_ID", "sheet-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendGoogle, cfg.SheetsBackend)
	assert.Equal(t, "Bayteca_leads_2026", cfg.LeadsTab)
	assert.Equal(t, "B2B Copy", cfg.DupesTab)
	assert.Equal(t, "Users", cfg.UsersTab)
	assert.Equal(t, "Sign in -Log Bayteca", cfg.SignInLogTab)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.FrontendOrigins)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestLoadWithoutSpreadsheetIDStillSucceeds(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_ID", "")
	t.Setenv("SHEETS_BACKEND", "google")

	// Missing credentials are reported per request by the sheet backend, not at boot.
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.SpreadsheetID)
}

func TestLoadXLSXBackend(t *testing.T) {
	t.Setenv("SHEETS_BACKEND", "XLSX")
	t.Setenv("XLSX_WORKBOOK_PATH", "testdata/leads.xlsx")
	t.Setenv("REPORT_TIMEZONE", "Europe/Madrid")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendXLSX, cfg.SheetsBackend)
	assert.Equal(t, "Europe/Madrid", cfg.Location.String())
}

func TestLoadRejectsUnknownBackendAndTimezone(t *testing.T) {
	t.Setenv("SHEETS_BACKEND", "postgres")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("SHEETS_BACKEND", "google")
	t.Setenv("GOOGLE_SHEETS_ID", "sheet-123")
	t.Setenv("REPORT_TIMEZONE", "Mars/Olympus")
	_, err = Load()
	require.Error(t, err)
}
